// Package docstore is a path-keyed document store: collections of JSON
// documents addressed as "collection/id" or "collection/parent/sub/id".
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid document path")
	ErrInvalidQuery  = errors.New("invalid query")
)

// Store is the document store contract used by every repository.
// No operation spans more than one document.
type Store interface {
	// Get returns nil, nil when the document does not exist
	Get(ctx context.Context, path string) (*Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// QueryGroup queries every collection named group nested under parent,
	// e.g. all "userComments" under "root/users"
	QueryGroup(ctx context.Context, parent, group string, q Query) ([]Document, error)
	// Create stores data under a generated id and returns it
	Create(ctx context.Context, collection string, data any) (string, error)
	// CreateWithID fails with ErrAlreadyExists if path is taken
	CreateWithID(ctx context.Context, path string, data any) error
	// Upsert replaces the document, or merges top-level fields into it when merge is set
	Upsert(ctx context.Context, path string, data any, merge bool) error
	// Update merges fields into an existing document, ErrNotFound otherwise
	Update(ctx context.Context, path string, fields map[string]any) error
	// Delete is a no-op for missing documents
	Delete(ctx context.Context, path string) error
	// Increment atomically adds each delta to its numeric field; missing fields count as 0
	Increment(ctx context.Context, path string, deltas map[string]float64) error
}

// Document is a stored record
type Document struct {
	ID         string          `json:"id"`
	Path       string          `json:"path"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DataTo decodes the document body into v
func (d *Document) DataTo(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Path, err)
	}
	return nil
}

// Fields decodes the document body into a generic map
func (d *Document) Fields() (map[string]any, error) {
	m := make(map[string]any)
	if err := d.DataTo(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// Join builds a document or collection path from its segments
func Join(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}

// Split separates a document path into its collection path and id
func Split(path string) (collection, id string, err error) {
	path = strings.Trim(path, "/")
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return path[:i], path[i+1:], nil
}

// InGroup reports whether collection is a collection named group nested under parent
func InGroup(collection, parent, group string) bool {
	collection, parent = Join(collection), Join(parent)
	return strings.HasPrefix(collection, parent+"/") && strings.HasSuffix(collection, "/"+group)
}

// encodeObject marshals data and checks that it is a JSON object
func encodeObject(data any) ([]byte, error) {
	var raw []byte
	switch v := data.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode document: %w", err)
		}
		raw = b
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("encode document: data must be a JSON object")
	}
	return raw, nil
}
