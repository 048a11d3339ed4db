package repository

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

const (
	// DefaultListLimit is applied when a listing carries no Limit query.
	DefaultListLimit = 25

	// MaxListLimit caps any Limit query.
	MaxListLimit = 5000
)

// Document is a schemaless record in a named collection.
// Field values use JSON shapes: string, float64, bool, []any, map[string]any.
type Document struct {
	ID         string
	Collection string
	Fields     map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentList is the result of a listing. Total counts every document
// matching the filters, ignoring cursor and limit.
type DocumentList struct {
	Documents []Document
	Total     int
}

// DocumentStore defines the interface for document persistence.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
// The store offers per-document atomicity only: no transactions, no
// compare-and-swap, no composite unique keys.
type DocumentStore interface {
	// CreateDoc persists a new document under the caller-chosen id.
	// Returns ErrConflict if the id is already taken in the collection.
	CreateDoc(ctx context.Context, collection, id string, fields map[string]any) (*Document, error)

	// GetDoc retrieves a document by id.
	// Returns ErrNotFound if the document does not exist.
	GetDoc(ctx context.Context, collection, id string) (*Document, error)

	// UpdateDoc merges patch into the stored fields.
	// Returns ErrNotFound if the document does not exist.
	UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) (*Document, error)

	// DeleteDoc removes a document.
	// Returns ErrNotFound if the document does not exist.
	DeleteDoc(ctx context.Context, collection, id string) error

	// ListDocs returns documents matching the queries in insertion order.
	ListDocs(ctx context.Context, collection string, queries ...Query) (*DocumentList, error)
}

// Collections names the document collections used by the services.
type Collections struct {
	Videos        string
	Profiles      string
	Likes         string
	Bookmarks     string
	Subscriptions string
	Comments      string
}

// DefaultCollections returns the default collection names.
func DefaultCollections() Collections {
	return Collections{
		Videos:        "videos",
		Profiles:      "profiles",
		Likes:         "likes",
		Bookmarks:     "bookmarks",
		Subscriptions: "subscriptions",
		Comments:      "comments",
	}
}

// ForKind returns the collection holding relations of the given kind.
func (c Collections) ForKind(kind model.RelationKind) (string, error) {
	switch kind {
	case model.KindLike:
		return c.Likes, nil
	case model.KindBookmark:
		return c.Bookmarks, nil
	case model.KindSubscription:
		return c.Subscriptions, nil
	case model.KindComment:
		return c.Comments, nil
	default:
		return "", model.ErrInvalidRelationKind
	}
}

// QueryOp names a listing predicate.
type QueryOp string

const (
	OpEqual       QueryOp = "equal"
	OpSearch      QueryOp = "search"
	OpAnd         QueryOp = "and"
	OpCursorAfter QueryOp = "cursorAfter"
	OpLimit       QueryOp = "limit"
)

// Query is a single listing predicate. Build it with the helper constructors.
type Query struct {
	Op      QueryOp
	Field   string
	Values  []any
	Queries []Query
}

// Equal matches documents whose field equals any of values.
func Equal(field string, values ...any) Query {
	return Query{Op: OpEqual, Field: field, Values: values}
}

// Search matches documents whose field contains every term of text as a word prefix.
func Search(field, text string) Query {
	return Query{Op: OpSearch, Field: field, Values: []any{text}}
}

// And matches documents satisfying every nested filter.
func And(queries ...Query) Query {
	return Query{Op: OpAnd, Queries: queries}
}

// CursorAfter starts the listing after the document with the given id.
func CursorAfter(id string) Query {
	return Query{Op: OpCursorAfter, Values: []any{id}}
}

// Limit bounds the number of returned documents.
func Limit(n int) Query {
	return Query{Op: OpLimit, Values: []any{n}}
}

// QueryPlan is the normalized form of a query list.
type QueryPlan struct {
	// Filters holds Equal, Search and And predicates, implicitly AND-ed.
	Filters []Query
	Limit   int
	Cursor  string
}

// PlanQueries validates queries and splits pagination from filtering.
func PlanQueries(queries []Query) (QueryPlan, error) {
	plan := QueryPlan{Limit: DefaultListLimit}

	for _, q := range queries {
		switch q.Op {
		case OpEqual, OpSearch, OpAnd:
			if err := validateFilter(q); err != nil {
				return QueryPlan{}, err
			}
			plan.Filters = append(plan.Filters, q)
		case OpLimit:
			n, ok := intValue(q.Values)
			if !ok || n <= 0 {
				return QueryPlan{}, fmt.Errorf("%w: limit must be a positive integer", ErrValidation)
			}
			if n > MaxListLimit {
				n = MaxListLimit
			}
			plan.Limit = n
		case OpCursorAfter:
			if len(q.Values) != 1 {
				return QueryPlan{}, fmt.Errorf("%w: cursor requires one document id", ErrValidation)
			}
			cursor, ok := q.Values[0].(string)
			if !ok || cursor == "" {
				return QueryPlan{}, fmt.Errorf("%w: cursor must be a non-empty document id", ErrValidation)
			}
			plan.Cursor = cursor
		default:
			return QueryPlan{}, fmt.Errorf("%w: unsupported query %q", ErrValidation, q.Op)
		}
	}

	return plan, nil
}

func validateFilter(q Query) error {
	switch q.Op {
	case OpEqual:
		if q.Field == "" || len(q.Values) == 0 {
			return fmt.Errorf("%w: equal requires a field and at least one value", ErrValidation)
		}
	case OpSearch:
		if q.Field == "" || len(q.Values) != 1 {
			return fmt.Errorf("%w: search requires a field and a text", ErrValidation)
		}
		if _, ok := q.Values[0].(string); !ok {
			return fmt.Errorf("%w: search text must be a string", ErrValidation)
		}
	case OpAnd:
		if len(q.Queries) == 0 {
			return fmt.Errorf("%w: and requires nested queries", ErrValidation)
		}
		for _, nested := range q.Queries {
			if nested.Op != OpEqual && nested.Op != OpSearch && nested.Op != OpAnd {
				return fmt.Errorf("%w: %q is not allowed inside and", ErrValidation, nested.Op)
			}
			if err := validateFilter(nested); err != nil {
				return err
			}
		}
	}
	return nil
}

func intValue(values []any) (int, bool) {
	if len(values) != 1 {
		return 0, false
	}
	switch v := values[0].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), v == float64(int(v))
	default:
		return 0, false
	}
}

// SearchTerms lowercases text and splits it into alphanumeric words.
// Both store adapters match each term as a word prefix.
func SearchTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// FormatValue renders a field value the way equality predicates compare it.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprint(val)
	}
}
