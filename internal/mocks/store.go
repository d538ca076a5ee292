package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/engagement-api/internal/docstore"
	"github.com/engagement-api/internal/session"
)

// FaultyStore wraps a docstore.Store, counts calls per operation and fails
// the operations registered with Fail.
type FaultyStore struct {
	docstore.Store

	mu    sync.Mutex
	calls map[string]int
	fails []fault
}

type fault struct {
	op       string
	contains string
	err      error
}

var _ docstore.Store = (*FaultyStore)(nil)

func NewFaultyStore(next docstore.Store) *FaultyStore {
	return &FaultyStore{Store: next, calls: make(map[string]int)}
}

// Fail makes op return err for every path containing substr ("" matches all)
func (s *FaultyStore) Fail(op, substr string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = append(s.fails, fault{op: op, contains: substr, err: err})
}

// Heal removes every registered failure
func (s *FaultyStore) Heal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails = nil
}

// Calls returns how many times op was invoked
func (s *FaultyStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// TotalCalls returns the number of store calls of any kind
func (s *FaultyStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

// ResetCalls zeroes the call counters
func (s *FaultyStore) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

func (s *FaultyStore) check(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	for _, f := range s.fails {
		if f.op == op && strings.Contains(path, f.contains) {
			return f.err
		}
	}
	return nil
}

func (s *FaultyStore) Get(ctx context.Context, path string) (*docstore.Document, error) {
	if err := s.check("get", path); err != nil {
		return nil, err
	}
	return s.Store.Get(ctx, path)
}

func (s *FaultyStore) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := s.check("query", collection); err != nil {
		return nil, err
	}
	return s.Store.Query(ctx, collection, q)
}

func (s *FaultyStore) QueryGroup(ctx context.Context, parent, group string, q docstore.Query) ([]docstore.Document, error) {
	if err := s.check("query_group", docstore.Join(parent, group)); err != nil {
		return nil, err
	}
	return s.Store.QueryGroup(ctx, parent, group, q)
}

func (s *FaultyStore) Create(ctx context.Context, collection string, data any) (string, error) {
	if err := s.check("create", collection); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, collection, data)
}

func (s *FaultyStore) CreateWithID(ctx context.Context, path string, data any) error {
	if err := s.check("create_with_id", path); err != nil {
		return err
	}
	return s.Store.CreateWithID(ctx, path, data)
}

func (s *FaultyStore) Upsert(ctx context.Context, path string, data any, merge bool) error {
	if err := s.check("upsert", path); err != nil {
		return err
	}
	return s.Store.Upsert(ctx, path, data, merge)
}

func (s *FaultyStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if err := s.check("update", path); err != nil {
		return err
	}
	return s.Store.Update(ctx, path, fields)
}

func (s *FaultyStore) Delete(ctx context.Context, path string) error {
	if err := s.check("delete", path); err != nil {
		return err
	}
	return s.Store.Delete(ctx, path)
}

func (s *FaultyStore) Increment(ctx context.Context, path string, deltas map[string]float64) error {
	if err := s.check("increment", path); err != nil {
		return err
	}
	return s.Store.Increment(ctx, path, deltas)
}

// StaticSessions is a session.Provider returning a fixed identity
type StaticSessions struct {
	User *session.Identity
}

var _ session.Provider = (*StaticSessions)(nil)

func (s *StaticSessions) CurrentUser(ctx context.Context) *session.Identity {
	return s.User
}
