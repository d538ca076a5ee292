package docstore

import (
	"context"
	"strings"
	"time"

	"github.com/engagement-api/internal/metrics"
)

// Instrumented wraps a Store and records every call in Prometheus
type Instrumented struct {
	next    Store
	backend string
	root    string
}

// NewInstrumented decorates next. root is stripped from collection labels
// to keep label values short.
func NewInstrumented(next Store, backend, root string) *Instrumented {
	return &Instrumented{next: next, backend: backend, root: Join(root)}
}

var _ Store = (*Instrumented)(nil)

// label reduces a path to its collection names, dropping ids:
// "root/users/u1/interests/m1" becomes "users.interests".
func (s *Instrumented) label(path string, isCollection bool) string {
	path = strings.TrimPrefix(Join(path), s.root)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if !isCollection && len(parts) > 0 {
		parts = parts[:len(parts)-1]
	}
	var names []string
	for i := 0; i < len(parts); i += 2 {
		names = append(names, parts[i])
	}
	return strings.Join(names, ".")
}

func (s *Instrumented) Get(ctx context.Context, path string) (*Document, error) {
	start := time.Now()
	doc, err := s.next.Get(ctx, path)
	metrics.ObserveStoreOperation(s.backend, "get", s.label(path, false), start, err)
	return doc, err
}

func (s *Instrumented) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.Query(ctx, collection, q)
	metrics.ObserveStoreOperation(s.backend, "query", s.label(collection, true), start, err)
	return docs, err
}

func (s *Instrumented) QueryGroup(ctx context.Context, parent, group string, q Query) ([]Document, error) {
	start := time.Now()
	docs, err := s.next.QueryGroup(ctx, parent, group, q)
	metrics.ObserveStoreOperation(s.backend, "query_group", s.label(Join(parent, "*", group), true), start, err)
	return docs, err
}

func (s *Instrumented) Create(ctx context.Context, collection string, data any) (string, error) {
	start := time.Now()
	id, err := s.next.Create(ctx, collection, data)
	metrics.ObserveStoreOperation(s.backend, "create", s.label(collection, true), start, err)
	return id, err
}

func (s *Instrumented) CreateWithID(ctx context.Context, path string, data any) error {
	start := time.Now()
	err := s.next.CreateWithID(ctx, path, data)
	metrics.ObserveStoreOperation(s.backend, "create", s.label(path, false), start, err)
	return err
}

func (s *Instrumented) Upsert(ctx context.Context, path string, data any, merge bool) error {
	start := time.Now()
	err := s.next.Upsert(ctx, path, data, merge)
	metrics.ObserveStoreOperation(s.backend, "upsert", s.label(path, false), start, err)
	return err
}

func (s *Instrumented) Update(ctx context.Context, path string, fields map[string]any) error {
	start := time.Now()
	err := s.next.Update(ctx, path, fields)
	metrics.ObserveStoreOperation(s.backend, "update", s.label(path, false), start, err)
	return err
}

func (s *Instrumented) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := s.next.Delete(ctx, path)
	metrics.ObserveStoreOperation(s.backend, "delete", s.label(path, false), start, err)
	return err
}

func (s *Instrumented) Increment(ctx context.Context, path string, deltas map[string]float64) error {
	start := time.Now()
	err := s.next.Increment(ctx, path, deltas)
	metrics.ObserveStoreOperation(s.backend, "increment", s.label(path, false), start, err)
	return err
}
