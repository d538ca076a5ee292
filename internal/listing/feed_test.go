package listing

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

// sliceFetcher pages over items with the index of the next item as cursor
func sliceFetcher(items []string, size int) Fetcher[string] {
	return func(ctx context.Context, cursor string) (Page[string], error) {
		start := 0
		if cursor != "" {
			start, _ = strconv.Atoi(cursor)
		}
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		page := Page[string]{Items: items[start:end]}
		if end < len(items) {
			page.HasMore = true
			page.NextCursor = strconv.Itoa(end)
		}
		return page, nil
	}
}

func TestFeed_PagesUntilExhausted(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}
	feed := NewFeed(sliceFetcher(items, 3))

	calls := 0
	for feed.HasMore() {
		calls++
		if _, err := feed.Next(context.Background()); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("Expected 3 calls, got %d", calls)
	}
	if got := feed.Items(); len(got) != len(items) {
		t.Errorf("Expected %d items, got %d", len(items), len(got))
	}

	page, err := feed.Next(context.Background())
	if err != nil || len(page.Items) != 0 {
		t.Errorf("Next after exhaustion should be empty, got %v, %v", page, err)
	}
}

func TestFeed_DiscardsSupersededResponse(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := true

	fetch := func(ctx context.Context, cursor string) (Page[string], error) {
		if slow {
			slow = false
			close(started)
			<-release
			return Page[string]{Items: []string{"stale"}}, nil
		}
		return Page[string]{Items: []string{"fresh"}}, nil
	}
	feed := NewFeed[string](fetch)

	errc := make(chan error, 1)
	go func() {
		_, err := feed.Next(context.Background())
		errc <- err
	}()

	<-started
	// A reload issued while the first fetch is in flight wins
	if _, err := feed.Reload(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	close(release)

	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Errorf("Expected ErrStale for superseded fetch, got %v", err)
	}
	got := feed.Items()
	if len(got) != 1 || got[0] != "fresh" {
		t.Errorf("Expected only the fresh page, got %v", got)
	}
}

func TestFeed_ErrorKeepsState(t *testing.T) {
	fail := errors.New("store unavailable")
	calls := 0
	fetch := func(ctx context.Context, cursor string) (Page[string], error) {
		calls++
		if calls == 2 {
			return Page[string]{}, fail
		}
		return Page[string]{Items: []string{cursor + "x"}, NextCursor: "c", HasMore: true}, nil
	}
	feed := NewFeed[string](fetch)

	feed.Next(context.Background())
	if _, err := feed.Next(context.Background()); !errors.Is(err, fail) {
		t.Fatalf("Expected store error, got %v", err)
	}
	if !feed.HasMore() || len(feed.Items()) != 1 {
		t.Error("A failed fetch must leave loaded state unchanged")
	}
}

func TestWalk(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	var seen []string
	err := Walk(context.Background(), sliceFetcher(items, 2), func(page []string) error {
		seen = append(seen, page...)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(seen) != len(items) {
		t.Errorf("Expected %d items, got %d", len(items), len(seen))
	}
}

func TestSearch(t *testing.T) {
	type movie struct {
		title  string
		genres []string
	}
	movies := []movie{
		{"Jawan", []string{"Action"}},
		{"Dunki", []string{"Comedy", "Drama"}},
		{"Animal", []string{"Action", "Crime"}},
	}
	text := func(m movie) []string { return append([]string{m.title}, m.genres...) }

	tests := []struct {
		q    string
		want int
	}{
		{"", 3},
		{"action", 2},
		{"DUN", 1},
		{"drama", 1},
		{"horror", 0},
	}
	for _, tt := range tests {
		if got := Search(movies, tt.q, text); len(got) != tt.want {
			t.Errorf("Search(%q) = %d items, want %d", tt.q, len(got), tt.want)
		}
	}
}
