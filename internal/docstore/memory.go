package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memDoc struct {
	collection string
	id         string
	fields     map[string]any
	createdAt  time.Time
	updatedAt  time.Time
}

// MemoryStore is an in-process Store. Every operation is atomic under one lock.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*memDoc
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]*memDoc),
		now:  time.Now,
	}
}

var _ Store = (*MemoryStore)(nil)

func decodeFields(data any) (map[string]any, error) {
	raw, err := encodeObject(data)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return fields, nil
}

func (d *memDoc) document(path string) (*Document, error) {
	raw, err := json.Marshal(d.fields)
	if err != nil {
		return nil, err
	}
	return &Document{
		ID:         d.id,
		Path:       path,
		Collection: d.collection,
		Data:       raw,
		CreatedAt:  d.createdAt,
		UpdatedAt:  d.updatedAt,
	}, nil
}

// Get returns the document at path
func (s *MemoryStore) Get(ctx context.Context, path string) (*Document, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.docs[Join(path)]
	if !ok {
		return nil, nil
	}
	return d.document(Join(path))
}

// Query returns the documents of collection matching q
func (s *MemoryStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	collection = Join(collection)
	return s.query(q, func(c string) bool { return c == collection })
}

// QueryGroup returns the matching documents of every group collection under parent
func (s *MemoryStore) QueryGroup(ctx context.Context, parent, group string, q Query) ([]Document, error) {
	if !fieldPattern.MatchString(group) {
		return nil, fmt.Errorf("%w: group %q", ErrInvalidQuery, group)
	}
	return s.query(q, func(c string) bool { return InGroup(c, parent, group) })
}

func (s *MemoryStore) query(q Query, inScope func(collection string) bool) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type candidate struct {
		path string
		doc  *memDoc
	}
	var found []candidate
	for path, d := range s.docs {
		if !inScope(d.collection) {
			continue
		}
		ok := true
		for _, p := range q.Where {
			if !matches(d.fields, p) {
				ok = false
				break
			}
		}
		if ok && q.OrderBy.Field != "" {
			// Documents without the order field are not part of an ordered result
			if v, present := d.fields[q.OrderBy.Field]; !present || v == nil {
				ok = false
			}
		}
		if ok {
			found = append(found, candidate{path: path, doc: d})
		}
	}

	less := func(a, b *memDoc) bool {
		if q.OrderBy.Field != "" {
			c, _ := compare(a.fields[q.OrderBy.Field], b.fields[q.OrderBy.Field], q.OrderBy.Kind)
			if c != 0 {
				if q.OrderBy.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return a.id < b.id
	}
	sort.SliceStable(found, func(i, j int) bool { return less(found[i].doc, found[j].doc) })

	var out []Document
	for _, c := range found {
		if q.After != nil && !s.isAfter(c.doc, q.After, q.OrderBy) {
			continue
		}
		doc, err := c.doc.document(c.path)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) isAfter(d *memDoc, after *Cursor, order OrderBy) bool {
	if order.Field != "" {
		c, ok := compare(d.fields[order.Field], after.Value, order.Kind)
		if !ok {
			return false
		}
		if c != 0 {
			if order.Desc {
				return c < 0
			}
			return c > 0
		}
	}
	return d.id > after.ID
}

// Create stores data under a new uuid
func (s *MemoryStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	if err := s.CreateWithID(ctx, Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID stores data at path unless it is already taken
func (s *MemoryStore) CreateWithID(ctx context.Context, path string, data any) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Join(path)
	if _, exists := s.docs[key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, key)
	}
	now := s.now()
	s.docs[key] = &memDoc{collection: collection, id: id, fields: fields, createdAt: now, updatedAt: now}
	return nil
}

// Upsert writes data at path, merging top-level fields when merge is set
func (s *MemoryStore) Upsert(ctx context.Context, path string, data any, merge bool) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Join(path)
	now := s.now()
	existing, ok := s.docs[key]
	if !ok {
		s.docs[key] = &memDoc{collection: collection, id: id, fields: fields, createdAt: now, updatedAt: now}
		return nil
	}
	if merge {
		for k, v := range fields {
			existing.fields[k] = v
		}
	} else {
		existing.fields = fields
	}
	existing.updatedAt = now
	return nil
}

// Update merges fields into an existing document
func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	decoded, err := decodeFields(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[Join(path)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	for k, v := range decoded {
		existing.fields[k] = v
	}
	existing.updatedAt = s.now()
	return nil
}

// Delete removes the document at path
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, Join(path))
	return nil
}

// Increment adds deltas to numeric fields of an existing document
func (s *MemoryStore) Increment(ctx context.Context, path string, deltas map[string]float64) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	for field := range deltas {
		if !fieldPattern.MatchString(field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, field)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.docs[Join(path)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	for field, delta := range deltas {
		current, _ := toFloat(existing.fields[field])
		existing.fields[field] = current + delta
	}
	existing.updatedAt = s.now()
	return nil
}

// Len reports the number of stored documents
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
