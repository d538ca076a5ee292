package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// PostgresStore keeps documents in a single JSONB table (see migrations/)
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store over an open connection pool
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// fieldExpr returns the SQL expression reading a top-level field as kind.
// Field names are validated against fieldPattern before they reach here.
func fieldExpr(field string, kind Kind) string {
	switch kind {
	case KindNumber:
		return fmt.Sprintf("(data->>'%s')::numeric", field)
	case KindTime:
		return fmt.Sprintf("(data->>'%s')::timestamptz", field)
	case KindBool:
		return fmt.Sprintf("(data->>'%s')::boolean", field)
	}
	return fmt.Sprintf("(data->>'%s')", field)
}

func sqlOp(op Op) string {
	if op == OpEq {
		return "="
	}
	return string(op)
}

// buildQuery renders q as a SELECT over documents of collection
func buildQuery(collection string, q Query) (string, []any) {
	return buildSelect("collection = ", collection, q)
}

// buildGroupQuery renders q as a SELECT over every group collection under parent
func buildGroupQuery(parent, group string, q Query) (string, []any) {
	return buildSelect("collection LIKE ", likeEscaper.Replace(Join(parent))+"/%/"+likeEscaper.Replace(group), q)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildSelect(scope, scopeArg string, q Query) (string, []any) {
	var (
		sb    strings.Builder
		args  []any
		conds []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, scope+arg(scopeArg))
	for _, p := range q.Where {
		if p.Value == nil {
			conds = append(conds, fmt.Sprintf("(data->'%s' IS NULL OR data->'%s' = 'null'::jsonb)", p.Field, p.Field))
			continue
		}
		kind, _ := kindOf(p.Value)
		value := p.Value
		if kind == KindNumber {
			value, _ = toFloat(p.Value)
		}
		conds = append(conds, fmt.Sprintf("%s %s %s", fieldExpr(p.Field, kind), sqlOp(p.Op), arg(value)))
	}

	order := "id ASC"
	if q.OrderBy.Field != "" {
		expr := fieldExpr(q.OrderBy.Field, q.OrderBy.Kind)
		dir, cmp := "ASC", ">"
		if q.OrderBy.Desc {
			dir, cmp = "DESC", "<"
		}
		conds = append(conds, fmt.Sprintf("data->'%s' IS NOT NULL AND data->'%s' <> 'null'::jsonb", q.OrderBy.Field, q.OrderBy.Field))
		order = fmt.Sprintf("%s %s, id ASC", expr, dir)
		if q.After != nil {
			v := arg(q.After.Value)
			id := arg(q.After.ID)
			conds = append(conds, fmt.Sprintf("(%s %s %s OR (%s = %s AND id > %s))", expr, cmp, v, expr, v, id))
		}
	} else if q.After != nil {
		conds = append(conds, "id > "+arg(q.After.ID))
	}

	sb.WriteString("SELECT path, collection, id, data, created_at, updated_at FROM documents WHERE ")
	sb.WriteString(strings.Join(conds, " AND "))
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(q.Limit))
	}
	return sb.String(), args
}

// Get retrieves a document by path
func (s *PostgresStore) Get(ctx context.Context, path string) (*Document, error) {
	if _, _, err := Split(path); err != nil {
		return nil, err
	}
	query := `SELECT path, collection, id, data, created_at, updated_at FROM documents WHERE path = $1`

	var doc Document
	var data []byte
	err := s.db.QueryRowContext(ctx, query, Join(path)).Scan(
		&doc.Path, &doc.Collection, &doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	doc.Data = json.RawMessage(data)
	return &doc, nil
}

// Query lists documents of a collection
func (s *PostgresStore) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	query, args := buildQuery(Join(collection), q)
	return s.scan(ctx, query, args)
}

func (s *PostgresStore) scan(ctx context.Context, query string, args []any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var data []byte
		if err := rows.Scan(&doc.Path, &doc.Collection, &doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.Data = json.RawMessage(data)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// QueryGroup lists documents of every group collection under parent
func (s *PostgresStore) QueryGroup(ctx context.Context, parent, group string, q Query) ([]Document, error) {
	if !fieldPattern.MatchString(group) {
		return nil, fmt.Errorf("%w: group %q", ErrInvalidQuery, group)
	}
	if err := q.validate(); err != nil {
		return nil, err
	}
	query, args := buildGroupQuery(parent, group, q)
	return s.scan(ctx, query, args)
}

// Create inserts a document under a generated id
func (s *PostgresStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.New().String()
	if err := s.CreateWithID(ctx, Join(collection, id), data); err != nil {
		return "", err
	}
	return id, nil
}

// CreateWithID inserts a document unless the path is taken
func (s *PostgresStore) CreateWithID(ctx context.Context, path string, data any) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := encodeObject(data)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (path, collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (path) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query, Join(path), collection, id, string(raw))
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
	}
	return nil
}

// Upsert inserts or replaces (or merges into) a document
func (s *PostgresStore) Upsert(ctx context.Context, path string, data any, merge bool) error {
	collection, id, err := Split(path)
	if err != nil {
		return err
	}
	raw, err := encodeObject(data)
	if err != nil {
		return err
	}

	set := "data = EXCLUDED.data"
	if merge {
		set = "data = documents.data || EXCLUDED.data"
	}
	query := `
		INSERT INTO documents (path, collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (path) DO UPDATE SET ` + set + `, updated_at = now()
	`
	_, err = s.db.ExecContext(ctx, query, Join(path), collection, id, string(raw))
	return err
}

// Update merges fields into an existing document
func (s *PostgresStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	raw, err := encodeObject(fields)
	if err != nil {
		return err
	}

	query := `UPDATE documents SET data = data || $2::jsonb, updated_at = now() WHERE path = $1`
	result, err := s.db.ExecContext(ctx, query, Join(path), string(raw))
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}

// Delete removes a document
func (s *PostgresStore) Delete(ctx context.Context, path string) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = $1`, Join(path))
	return err
}

// Increment applies all deltas in one UPDATE so the document changes atomically
func (s *PostgresStore) Increment(ctx context.Context, path string, deltas map[string]float64) error {
	if _, _, err := Split(path); err != nil {
		return err
	}
	if len(deltas) == 0 {
		return nil
	}

	fields := make([]string, 0, len(deltas))
	for field := range deltas {
		if !fieldPattern.MatchString(field) {
			return fmt.Errorf("%w: field %q", ErrInvalidQuery, field)
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)

	args := []any{Join(path)}
	expr := "data"
	for _, field := range fields {
		args = append(args, deltas[field])
		expr = fmt.Sprintf("jsonb_set(%s, '{%s}', to_jsonb(COALESCE((data->>'%s')::numeric, 0) + $%d))",
			expr, field, field, len(args))
	}

	query := fmt.Sprintf(`UPDATE documents SET data = %s, updated_at = now() WHERE path = $1`, expr)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}

// IsNotFound reports whether err means the target document was absent
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
