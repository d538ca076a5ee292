package docstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Op is a comparison operator for predicates
type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Kind tells the store how to compare a field
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTime
	KindBool
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Predicate compares a top-level field against a value.
// A nil Value with OpEq matches missing or null fields.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Where is shorthand for building a Predicate
func Where(field string, op Op, value any) Predicate {
	return Predicate{Field: field, Op: op, Value: value}
}

// OrderBy sorts by one field. Ties are always broken by document id ascending.
// An empty Field orders by id only.
type OrderBy struct {
	Field string
	Kind  Kind
	Desc  bool
}

// Cursor marks the last document of a page: its sort value and id
type Cursor struct {
	Value any
	ID    string
}

// Query selects documents of a single collection
type Query struct {
	Where   []Predicate
	OrderBy OrderBy
	Limit   int
	After   *Cursor
}

func (q Query) validate() error {
	for _, p := range q.Where {
		if !fieldPattern.MatchString(p.Field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, p.Field)
		}
		switch p.Op {
		case OpEq, OpLt, OpLte, OpGt, OpGte:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidQuery, p.Op)
		}
		if p.Value == nil && p.Op != OpEq {
			return fmt.Errorf("%w: nil value with %q", ErrInvalidQuery, p.Op)
		}
		if _, ok := kindOf(p.Value); !ok && p.Value != nil {
			return fmt.Errorf("%w: unsupported value type %T", ErrInvalidQuery, p.Value)
		}
	}
	if q.OrderBy.Field != "" && !fieldPattern.MatchString(q.OrderBy.Field) {
		return fmt.Errorf("%w: order field %q", ErrInvalidQuery, q.OrderBy.Field)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidQuery)
	}
	return nil
}

// kindOf normalizes a predicate value and reports its kind
func kindOf(v any) (Kind, bool) {
	switch v.(type) {
	case string:
		return KindString, true
	case time.Time:
		return KindTime, true
	case bool:
		return KindBool, true
	case int, int32, int64, float32, float64:
		return KindNumber, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// compare orders a stored JSON value against a wanted value of the given kind.
// ok is false when the stored value cannot be compared (missing or wrong type).
func compare(stored any, want any, kind Kind) (cmp int, ok bool) {
	switch kind {
	case KindString:
		a, aok := stored.(string)
		b, bok := want.(string)
		if !aok || !bok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	case KindNumber:
		a, aok := toFloat(stored)
		b, bok := toFloat(want)
		if !aok || !bok {
			return 0, false
		}
		switch {
		case a < b:
			return -1, true
		case a > b:
			return 1, true
		}
		return 0, true
	case KindTime:
		a, aok := toTime(stored)
		b, bok := toTime(want)
		if !aok || !bok {
			return 0, false
		}
		return a.Compare(b), true
	case KindBool:
		a, aok := stored.(bool)
		b, bok := want.(bool)
		if !aok || !bok {
			return 0, false
		}
		if a == b {
			return 0, true
		}
		if !a {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func matches(fields map[string]any, p Predicate) bool {
	stored, present := fields[p.Field]
	if p.Value == nil {
		return !present || stored == nil
	}
	kind, _ := kindOf(p.Value)
	c, ok := compare(stored, p.Value, kind)
	if !ok {
		return false
	}
	switch p.Op {
	case OpEq:
		return c == 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	}
	return false
}

// CursorFor builds the cursor pointing at doc under the given ordering
func CursorFor(doc Document, order OrderBy) (*Cursor, error) {
	if order.Field == "" {
		return &Cursor{ID: doc.ID}, nil
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, err
	}
	raw, ok := fields[order.Field]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %s has no %q", ErrInvalidQuery, doc.Path, order.Field)
	}
	value, err := normalizeCursorValue(raw, order.Kind)
	if err != nil {
		return nil, err
	}
	return &Cursor{Value: value, ID: doc.ID}, nil
}

func normalizeCursorValue(raw any, kind Kind) (any, error) {
	switch kind {
	case KindTime:
		if t, ok := toTime(raw); ok {
			return t.UTC(), nil
		}
	case KindNumber:
		if f, ok := toFloat(raw); ok {
			return f, nil
		}
	case KindString:
		if s, ok := raw.(string); ok {
			return s, nil
		}
	case KindBool:
		if b, ok := raw.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: cursor value %v does not match kind", ErrInvalidQuery, raw)
}

type wireCursor struct {
	Value any    `json:"v,omitempty"`
	ID    string `json:"id"`
}

// EncodeCursor renders a cursor as an opaque URL-safe token
func EncodeCursor(c *Cursor) string {
	if c == nil {
		return ""
	}
	w := wireCursor{Value: c.Value, ID: c.ID}
	if t, ok := c.Value.(time.Time); ok {
		w.Value = t.UTC().Format(time.RFC3339Nano)
	}
	b, _ := json.Marshal(w)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by EncodeCursor for an ordering of the given kind
func DecodeCursor(token string, order OrderBy) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	var w wireCursor
	if err := json.Unmarshal(b, &w); err != nil || w.ID == "" {
		return nil, fmt.Errorf("%w: malformed cursor", ErrInvalidQuery)
	}
	if order.Field == "" {
		return &Cursor{ID: w.ID}, nil
	}
	value, err := normalizeCursorValue(w.Value, order.Kind)
	if err != nil {
		return nil, err
	}
	return &Cursor{Value: value, ID: w.ID}, nil
}
