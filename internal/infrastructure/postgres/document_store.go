package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// DBTX is an interface that abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DocumentStore implements repository.DocumentStore on a JSONB table.
type DocumentStore struct {
	db DBTX
}

// NewDocumentStore creates a new DocumentStore instance.
func NewDocumentStore(db DBTX) *DocumentStore {
	return &DocumentStore{db: db}
}

// CreateDoc persists a new document.
func (s *DocumentStore) CreateDoc(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
	const query = `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.Exec(ctx, query, collection, id, data, now, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			observe(metrics.DocOpCreate, collection, repository.ErrConflict)
			return nil, fmt.Errorf("%w: document %s/%s already exists", repository.ErrConflict, collection, id)
		}
		observe(metrics.DocOpCreate, collection, err)
		return nil, fmt.Errorf("%w: failed to create document: %w", repository.ErrDocumentStore, err)
	}
	observe(metrics.DocOpCreate, collection, nil)

	doc, err := decodeDocument(collection, id, data, now, now)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// GetDoc retrieves a document by id.
func (s *DocumentStore) GetDoc(ctx context.Context, collection, id string) (*repository.Document, error) {
	const query = `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	doc, err := scanDocument(collection, s.db.QueryRow(ctx, query, collection, id))
	observe(metrics.DocOpGet, collection, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("%w: failed to get document: %w", repository.ErrDocumentStore, err)
	}

	return doc, nil
}

// UpdateDoc merges patch into the stored fields in a single statement.
func (s *DocumentStore) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
	const query = `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = $4
		WHERE collection = $1 AND id = $2
		RETURNING id, data, created_at, updated_at
	`

	data, err := encodeFields(patch)
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(collection, s.db.QueryRow(ctx, query, collection, id, data, time.Now()))
	observe(metrics.DocOpUpdate, collection, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
		}
		return nil, fmt.Errorf("%w: failed to update document: %w", repository.ErrDocumentStore, err)
	}

	return doc, nil
}

// DeleteDoc removes a document.
func (s *DocumentStore) DeleteDoc(ctx context.Context, collection, id string) error {
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	tag, err := s.db.Exec(ctx, query, collection, id)
	if err != nil {
		observe(metrics.DocOpDelete, collection, err)
		return fmt.Errorf("%w: failed to delete document: %w", repository.ErrDocumentStore, err)
	}

	if tag.RowsAffected() == 0 {
		observe(metrics.DocOpDelete, collection, repository.ErrNotFound)
		return fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
	}

	observe(metrics.DocOpDelete, collection, nil)
	return nil
}

// ListDocs returns matching documents ordered by insertion.
// Total is computed over the filters only.
func (s *DocumentStore) ListDocs(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
	plan, err := repository.PlanQueries(queries)
	if err != nil {
		return nil, err
	}

	where := &whereBuilder{}
	where.clauses = append(where.clauses, "collection = "+where.arg(collection))
	for _, f := range plan.Filters {
		where.clauses = append(where.clauses, where.filter(f))
	}
	filterSQL := strings.Join(where.clauses, " AND ")

	var total int
	countSQL := "SELECT COUNT(*) FROM documents WHERE " + filterSQL
	if err := s.db.QueryRow(ctx, countSQL, where.args...).Scan(&total); err != nil {
		observe(metrics.DocOpList, collection, err)
		return nil, fmt.Errorf("%w: failed to count documents: %w", repository.ErrDocumentStore, err)
	}

	pageSQL := filterSQL
	if plan.Cursor != "" {
		seq, err := s.cursorSeq(ctx, collection, plan.Cursor)
		if err != nil {
			observe(metrics.DocOpList, collection, err)
			return nil, err
		}
		pageSQL += " AND seq > " + where.arg(seq)
	}

	selectSQL := "SELECT id, data, created_at, updated_at FROM documents WHERE " +
		pageSQL + " ORDER BY seq ASC LIMIT " + where.arg(plan.Limit)

	rows, err := s.db.Query(ctx, selectSQL, where.args...)
	if err != nil {
		observe(metrics.DocOpList, collection, err)
		return nil, fmt.Errorf("%w: failed to query documents: %w", repository.ErrDocumentStore, err)
	}
	defer rows.Close()

	docs := make([]repository.Document, 0, plan.Limit)
	for rows.Next() {
		doc, err := scanDocument(collection, rows)
		if err != nil {
			observe(metrics.DocOpList, collection, err)
			return nil, fmt.Errorf("%w: failed to scan document: %w", repository.ErrDocumentStore, err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		observe(metrics.DocOpList, collection, err)
		return nil, fmt.Errorf("%w: error iterating documents: %w", repository.ErrDocumentStore, err)
	}

	observe(metrics.DocOpList, collection, nil)
	return &repository.DocumentList{Documents: docs, Total: total}, nil
}

// cursorSeq resolves a cursor document id to its insertion sequence.
func (s *DocumentStore) cursorSeq(ctx context.Context, collection, id string) (int64, error) {
	const query = `SELECT seq FROM documents WHERE collection = $1 AND id = $2`

	var seq int64
	if err := s.db.QueryRow(ctx, query, collection, id).Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: cursor document %s/%s", repository.ErrNotFound, collection, id)
		}
		return 0, fmt.Errorf("%w: failed to resolve cursor: %w", repository.ErrDocumentStore, err)
	}
	return seq, nil
}

// whereBuilder accumulates positional arguments while rendering predicates.
type whereBuilder struct {
	clauses []string
	args    []any
}

func (b *whereBuilder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// filter renders one validated predicate. Field names are always bound as
// parameters, never spliced into the SQL text.
func (b *whereBuilder) filter(q repository.Query) string {
	switch q.Op {
	case repository.OpEqual:
		values := make([]string, len(q.Values))
		for i, v := range q.Values {
			values[i] = repository.FormatValue(v)
		}
		return fmt.Sprintf("data->>%s::text = ANY(%s::text[])", b.arg(q.Field), b.arg(values))
	case repository.OpSearch:
		text, _ := q.Values[0].(string)
		terms := repository.SearchTerms(text)
		if len(terms) == 0 {
			return "FALSE"
		}
		for i, term := range terms {
			terms[i] = term + ":*"
		}
		return fmt.Sprintf(
			"to_tsvector('simple', coalesce(data->>%s::text, '')) @@ to_tsquery('simple', %s)",
			b.arg(q.Field), b.arg(strings.Join(terms, " & ")),
		)
	case repository.OpAnd:
		parts := make([]string, len(q.Queries))
		for i, nested := range q.Queries {
			parts[i] = b.filter(nested)
		}
		return "(" + strings.Join(parts, " AND ") + ")"
	default:
		return "FALSE"
	}
}

// scanDocument scans a single row into a Document.
func scanDocument(collection string, row pgx.Row) (*repository.Document, error) {
	var (
		id        string
		data      []byte
		createdAt time.Time
		updatedAt time.Time
	)

	if err := row.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	return decodeDocument(collection, id, data, createdAt, updatedAt)
}

func decodeDocument(collection, id string, data []byte, createdAt, updatedAt time.Time) (*repository.Document, error) {
	fields := map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &fields); err != nil {
			return nil, fmt.Errorf("%w: decode document %s/%s: %w", repository.ErrDocumentStore, collection, id, err)
		}
	}

	return &repository.Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: encode fields: %w", repository.ErrValidation, err)
	}
	return data, nil
}

func observe(op, collection string, err error) {
	status := metrics.StatusSuccess
	switch {
	case err == nil:
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, repository.ErrNotFound):
		status = metrics.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		status = metrics.StatusConflict
	default:
		status = metrics.StatusError
	}
	metrics.DocumentOperationsTotal.WithLabelValues(op, collection, status).Inc()
}

// Compile-time verification that DocumentStore implements repository.DocumentStore.
var _ repository.DocumentStore = (*DocumentStore)(nil)
