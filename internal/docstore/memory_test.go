package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type testItem struct {
	Title       string    `json:"title"`
	Category    string    `json:"category,omitempty"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Rank        int       `json:"rank"`
}

func TestJoinSplit(t *testing.T) {
	if got := Join("root/", "/news", "", "a1"); got != "root/news/a1" {
		t.Errorf("Join = %q", got)
	}

	tests := []struct {
		path       string
		collection string
		id         string
		wantErr    bool
	}{
		{path: "news/a1", collection: "news", id: "a1"},
		{path: "news/a1/feedback/u1", collection: "news/a1/feedback", id: "u1"},
		{path: "news", wantErr: true},
		{path: "news/", wantErr: true},
		{path: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c, id, err := Split(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Errorf("Expected ErrInvalidPath, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Split failed: %v", err)
			}
			if c != tt.collection || id != tt.id {
				t.Errorf("Split = (%q, %q), want (%q, %q)", c, id, tt.collection, tt.id)
			}
		})
	}
}

func TestMemoryStore_CRUD(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc, err := s.Get(ctx, "news/missing")
	if err != nil || doc != nil {
		t.Fatalf("Expected nil, nil for missing doc, got %v, %v", doc, err)
	}

	id, err := s.Create(ctx, "news", map[string]any{"title": "hello"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Expected generated id")
	}

	if err := s.CreateWithID(ctx, Join("news", id), map[string]any{"title": "again"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists, got %v", err)
	}

	if err := s.Update(ctx, Join("news", id), map[string]any{"body": "text"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	doc, _ = s.Get(ctx, Join("news", id))
	fields, _ := doc.Fields()
	if fields["title"] != "hello" || fields["body"] != "text" {
		t.Errorf("Update should merge fields, got %v", fields)
	}

	if err := s.Update(ctx, "news/nope", map[string]any{"x": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update of missing doc, got %v", err)
	}

	if err := s.Upsert(ctx, Join("news", id), map[string]any{"title": "replaced"}, false); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	doc, _ = s.Get(ctx, Join("news", id))
	fields, _ = doc.Fields()
	if _, ok := fields["body"]; ok {
		t.Error("Upsert without merge should replace the document")
	}

	if err := s.Delete(ctx, Join("news", id)); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, Join("news", id)); err != nil {
		t.Errorf("Delete of missing doc should be a no-op, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty store, got %d", s.Len())
	}
}

func TestMemoryStore_RejectsNonObject(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Upsert(context.Background(), "news/a1", []string{"x"}, false); err == nil {
		t.Error("Expected error for non-object data")
	}
}

func TestMemoryStore_Increment(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Increment(ctx, "news/a1", map[string]float64{"likesCount": 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	s.Upsert(ctx, "news/a1", map[string]any{"likesCount": 3}, false)
	if err := s.Increment(ctx, "news/a1", map[string]float64{"likesCount": -1, "dislikesCount": 1}); err != nil {
		t.Fatalf("Increment failed: %v", err)
	}
	doc, _ := s.Get(ctx, "news/a1")
	fields, _ := doc.Fields()
	if fields["likesCount"].(float64) != 2 {
		t.Errorf("Expected likesCount 2, got %v", fields["likesCount"])
	}
	if fields["dislikesCount"].(float64) != 1 {
		t.Errorf("Missing field should count as 0, got %v", fields["dislikesCount"])
	}

	if err := s.Increment(ctx, "news/a1", map[string]float64{"bad-field": 1}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for bad field, got %v", err)
	}
}

func seedItems(t *testing.T, s Store, base time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		category := "bollywood"
		if i%2 == 0 {
			category = "hollywood"
		}
		item := testItem{
			Title:       fmt.Sprintf("item %02d", i),
			Category:    category,
			ScheduledAt: base.Add(time.Duration(i/3) * time.Hour), // groups of three share a timestamp
			Rank:        i,
		}
		if err := s.CreateWithID(context.Background(), Join("news", fmt.Sprintf("n%02d", i)), item); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestMemoryStore_QueryFilterAndOrder(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedItems(t, s, base, 9)

	docs, err := s.Query(context.Background(), "news", Query{
		Where: []Predicate{
			Where("category", OpEq, "hollywood"),
			Where("scheduledAt", OpLte, base.Add(2*time.Hour)),
		},
		OrderBy: OrderBy{Field: "scheduledAt", Kind: KindTime, Desc: true},
	})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	// hollywood = even ranks; n06,n08 at +2h, n04 at +1h, n00,n02 at +0h
	want := "n06,n08,n04,n00,n02"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("Order = %s, want %s", got, want)
	}
}

func TestMemoryStore_QueryNilPredicate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Upsert(ctx, "feedback/u1", map[string]any{"type": nil}, false)
	s.Upsert(ctx, "feedback/u2", map[string]any{"type": "like"}, false)
	s.Upsert(ctx, "feedback/u3", map[string]any{}, false)

	docs, err := s.Query(ctx, "feedback", Query{Where: []Predicate{Where("type", OpEq, nil)}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("Expected 2 docs with null/missing type, got %d", len(docs))
	}

	if _, err := s.Query(ctx, "feedback", Query{Where: []Predicate{Where("type", OpLt, nil)}}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestMemoryStore_CursorPagination(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	const n, pageSize = 25, 4
	seedItems(t, s, base, n)

	order := OrderBy{Field: "scheduledAt", Kind: KindTime, Desc: true}
	seen := make(map[string]bool)
	var after *Cursor
	calls := 0
	for {
		calls++
		if calls > n {
			t.Fatal("pagination did not terminate")
		}
		docs, err := s.Query(context.Background(), "news", Query{OrderBy: order, Limit: pageSize, After: after})
		if err != nil {
			t.Fatalf("Query failed: %v", err)
		}
		for _, d := range docs {
			if seen[d.ID] {
				t.Errorf("Duplicate id %s across pages", d.ID)
			}
			seen[d.ID] = true
		}
		if len(docs) < pageSize {
			break
		}
		// Round-trip through the opaque token as a client would
		c, err := CursorFor(docs[len(docs)-1], order)
		if err != nil {
			t.Fatalf("CursorFor failed: %v", err)
		}
		after, err = DecodeCursor(EncodeCursor(c), order)
		if err != nil {
			t.Fatalf("DecodeCursor failed: %v", err)
		}
	}

	if len(seen) != n {
		t.Errorf("Expected %d distinct ids, got %d", n, len(seen))
	}
	if want := (n + pageSize - 1) / pageSize; calls != want {
		t.Errorf("Expected %d calls, got %d", want, calls)
	}
}

func TestDecodeCursor(t *testing.T) {
	order := OrderBy{Field: "rank", Kind: KindNumber}

	c, err := DecodeCursor("", order)
	if err != nil || c != nil {
		t.Errorf("Empty token should decode to nil, got %v, %v", c, err)
	}

	if _, err := DecodeCursor("%%%", order); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for garbage, got %v", err)
	}

	token := EncodeCursor(&Cursor{Value: 7.0, ID: "n07"})
	c, err = DecodeCursor(token, order)
	if err != nil {
		t.Fatalf("DecodeCursor failed: %v", err)
	}
	if c.ID != "n07" || c.Value.(float64) != 7 {
		t.Errorf("Unexpected cursor %+v", c)
	}

	if _, err := DecodeCursor(token, OrderBy{Field: "scheduledAt", Kind: KindTime}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Cursor of the wrong kind should be rejected, got %v", err)
	}
}

func TestBuildQuery(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	sql, args := buildQuery("root/news", Query{
		Where:   []Predicate{Where("scheduledAt", OpLte, now), Where("category", OpEq, "bollywood")},
		OrderBy: OrderBy{Field: "scheduledAt", Kind: KindTime, Desc: true},
		Limit:   12,
		After:   &Cursor{Value: now, ID: "n1"},
	})

	for _, fragment := range []string{
		"collection = $1",
		"(data->>'scheduledAt')::timestamptz <= $2",
		"(data->>'category') = $3",
		"((data->>'scheduledAt')::timestamptz < $4 OR ((data->>'scheduledAt')::timestamptz = $4 AND id > $5))",
		"ORDER BY (data->>'scheduledAt')::timestamptz DESC, id ASC",
		"LIMIT $6",
	} {
		if !strings.Contains(sql, fragment) {
			t.Errorf("SQL missing %q:\n%s", fragment, sql)
		}
	}
	if len(args) != 6 {
		t.Errorf("Expected 6 args, got %d", len(args))
	}
}

func TestInstrumentedLabel(t *testing.T) {
	s := NewInstrumented(NewMemoryStore(), "memory", "artifacts/app")

	tests := []struct {
		path         string
		isCollection bool
		want         string
	}{
		{"artifacts/app/news/a1", false, "news"},
		{"artifacts/app/news/a1/feedback/u1", false, "news.feedback"},
		{"artifacts/app/users/u1/userComments", true, "users.userComments"},
		{"artifacts/app/comments", true, "comments"},
	}
	for _, tt := range tests {
		if got := s.label(tt.path, tt.isCollection); got != tt.want {
			t.Errorf("label(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestMemoryStore_QueryGroup(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seed := []string{
		"root/users/u1/userComments/c1",
		"root/users/u2/userComments/c2",
		"root/users/u2/interests/m1",
		"root/comments/c3",
		"other/users/u3/userComments/c4",
	}
	for _, path := range seed {
		if err := s.Upsert(ctx, path, map[string]any{"path": path}, false); err != nil {
			t.Fatalf("seed %s: %v", path, err)
		}
	}

	docs, err := s.QueryGroup(ctx, "root/users", "userComments", Query{})
	if err != nil {
		t.Fatalf("QueryGroup failed: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "c1" || docs[1].ID != "c2" {
		t.Fatalf("Unexpected group result %+v", docs)
	}
	if docs[1].Collection != "root/users/u2/userComments" {
		t.Errorf("Expected owning collection, got %q", docs[1].Collection)
	}

	page, err := s.QueryGroup(ctx, "root/users", "userComments", Query{Limit: 1, After: &Cursor{ID: "c1"}})
	if err != nil || len(page) != 1 || page[0].ID != "c2" {
		t.Errorf("Expected c2 after cursor, got %+v (%v)", page, err)
	}

	if _, err := s.QueryGroup(ctx, "root/users", "a/b", Query{}); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("Expected ErrInvalidQuery for nested group name, got %v", err)
	}
}

func TestBuildGroupQuery(t *testing.T) {
	sql, args := buildGroupQuery("app_1/users", "userComments", Query{Limit: 10})

	if !strings.Contains(sql, "collection LIKE $1") {
		t.Errorf("SQL missing group scope:\n%s", sql)
	}
	if len(args) != 2 || args[0] != `app\_1/users/%/userComments` {
		t.Errorf("Unexpected args %v", args)
	}
}
