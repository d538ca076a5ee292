// Package listing pages through cursor-ordered collections.
package listing

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrStale is returned by Feed.Next when a newer fetch or a reset superseded it
var ErrStale = errors.New("response superseded by a newer request")

// Page is one page of a cursor listing
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

// Fetcher loads the page after cursor ("" for the first page)
type Fetcher[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Feed is a paging view over a Fetcher. Every fetch is issued a token and
// only the response to the latest token is applied; older responses are
// dropped with ErrStale.
//
// Clients that load pages while the user scrolls or changes filters use a
// Feed; the server itself only pages through Walk.
type Feed[T any] struct {
	fetch  Fetcher[T]
	retain bool

	mu      sync.Mutex
	latest  uint64
	items   []T
	cursor  string
	hasMore bool
}

// NewFeed creates a feed that accumulates loaded items
func NewFeed[T any](fetch Fetcher[T]) *Feed[T] {
	return &Feed[T]{fetch: fetch, retain: true, hasMore: true}
}

// Reset discards loaded pages and invalidates fetches in flight
func (f *Feed[T]) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest++
	f.items = nil
	f.cursor = ""
	f.hasMore = true
}

// Next loads the page after the last applied one
func (f *Feed[T]) Next(ctx context.Context) (Page[T], error) {
	f.mu.Lock()
	if !f.hasMore {
		f.mu.Unlock()
		return Page[T]{}, nil
	}
	f.latest++
	token := f.latest
	cursor := f.cursor
	f.mu.Unlock()

	page, err := f.fetch(ctx, cursor)

	f.mu.Lock()
	defer f.mu.Unlock()
	if token != f.latest {
		return Page[T]{}, ErrStale
	}
	if err != nil {
		return Page[T]{}, err
	}
	if f.retain {
		f.items = append(f.items, page.Items...)
	}
	f.cursor = page.NextCursor
	f.hasMore = page.HasMore && page.NextCursor != ""
	return page, nil
}

// Reload resets the feed and loads the first page
func (f *Feed[T]) Reload(ctx context.Context) (Page[T], error) {
	f.Reset()
	return f.Next(ctx)
}

// Items returns a copy of the loaded items
func (f *Feed[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

func (f *Feed[T]) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

// Walk calls fn for every page of fetch until the listing is exhausted or ctx ends
func Walk[T any](ctx context.Context, fetch Fetcher[T], fn func([]T) error) error {
	feed := &Feed[T]{fetch: fetch, hasMore: true}
	for feed.HasMore() {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := feed.Next(ctx)
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			continue
		}
		if err := fn(page.Items); err != nil {
			return err
		}
	}
	return nil
}

// Search keeps the items whose text contains q, case-insensitively.
// It only sees the items it is given: searching a loaded page never
// reaches items on pages that were not fetched.
func Search[T any](items []T, q string, text func(T) []string) []T {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		for _, s := range text(item) {
			if strings.Contains(strings.ToLower(s), q) {
				out = append(out, item)
				break
			}
		}
	}
	return out
}
