// Package memory provides in-process adapters used for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

type entry struct {
	seq       int64
	data      []byte
	createdAt time.Time
	updatedAt time.Time
}

// DocumentStore implements repository.DocumentStore in memory.
// Fields are stored as JSON so values come back in the same shapes
// the PostgreSQL store returns.
type DocumentStore struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]map[string]*entry
}

// NewDocumentStore creates an empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{collections: make(map[string]map[string]*entry)}
}

func (s *DocumentStore) CreateDoc(_ context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
	data, err := encode(fields)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	if docs == nil {
		docs = make(map[string]*entry)
		s.collections[collection] = docs
	}
	if _, ok := docs[id]; ok {
		observe(metrics.DocOpCreate, collection, metrics.StatusConflict)
		return nil, fmt.Errorf("%w: document %s/%s already exists", repository.ErrConflict, collection, id)
	}

	s.seq++
	now := time.Now()
	e := &entry{seq: s.seq, data: data, createdAt: now, updatedAt: now}
	docs[id] = e

	observe(metrics.DocOpCreate, collection, metrics.StatusSuccess)
	return decode(collection, id, e)
}

func (s *DocumentStore) GetDoc(_ context.Context, collection, id string) (*repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.collections[collection][id]
	if !ok {
		observe(metrics.DocOpGet, collection, metrics.StatusNotFound)
		return nil, fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
	}

	observe(metrics.DocOpGet, collection, metrics.StatusSuccess)
	return decode(collection, id, e)
}

func (s *DocumentStore) UpdateDoc(_ context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection][id]
	if !ok {
		observe(metrics.DocOpUpdate, collection, metrics.StatusNotFound)
		return nil, fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
	}

	fields := map[string]any{}
	if err := json.Unmarshal(e.data, &fields); err != nil {
		return nil, fmt.Errorf("%w: decode document %s/%s: %w", repository.ErrDocumentStore, collection, id, err)
	}
	for k, v := range patch {
		fields[k] = v
	}

	data, err := encode(fields)
	if err != nil {
		return nil, err
	}
	e.data = data
	e.updatedAt = time.Now()

	observe(metrics.DocOpUpdate, collection, metrics.StatusSuccess)
	return decode(collection, id, e)
}

func (s *DocumentStore) DeleteDoc(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		observe(metrics.DocOpDelete, collection, metrics.StatusNotFound)
		return fmt.Errorf("%w: document %s/%s", repository.ErrNotFound, collection, id)
	}
	delete(s.collections[collection], id)

	observe(metrics.DocOpDelete, collection, metrics.StatusSuccess)
	return nil
}

func (s *DocumentStore) ListDocs(_ context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
	plan, err := repository.PlanQueries(queries)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]

	var after int64
	if plan.Cursor != "" {
		cursor, ok := docs[plan.Cursor]
		if !ok {
			observe(metrics.DocOpList, collection, metrics.StatusNotFound)
			return nil, fmt.Errorf("%w: cursor document %s/%s", repository.ErrNotFound, collection, plan.Cursor)
		}
		after = cursor.seq
	}

	type hit struct {
		id    string
		entry *entry
	}
	var matched []hit
	for id, e := range docs {
		doc, err := decode(collection, id, e)
		if err != nil {
			return nil, err
		}
		if matchesAll(doc.Fields, plan.Filters) {
			matched = append(matched, hit{id: id, entry: e})
		}
	}
	slices.SortFunc(matched, func(a, b hit) int {
		return cmp.Compare(a.entry.seq, b.entry.seq)
	})

	list := &repository.DocumentList{Total: len(matched), Documents: []repository.Document{}}
	for _, h := range matched {
		if len(list.Documents) == plan.Limit {
			break
		}
		if h.entry.seq <= after {
			continue
		}
		doc, err := decode(collection, h.id, h.entry)
		if err != nil {
			return nil, err
		}
		list.Documents = append(list.Documents, *doc)
	}

	observe(metrics.DocOpList, collection, metrics.StatusSuccess)
	return list, nil
}

func matchesAll(fields map[string]any, filters []repository.Query) bool {
	for _, f := range filters {
		if !matches(fields, f) {
			return false
		}
	}
	return true
}

func matches(fields map[string]any, q repository.Query) bool {
	switch q.Op {
	case repository.OpEqual:
		got := repository.FormatValue(fields[q.Field])
		for _, v := range q.Values {
			if repository.FormatValue(v) == got {
				return true
			}
		}
		return false
	case repository.OpSearch:
		text, _ := q.Values[0].(string)
		value, _ := fields[q.Field].(string)
		return searchMatches(value, text)
	case repository.OpAnd:
		return matchesAll(fields, q.Queries)
	default:
		return false
	}
}

// searchMatches reports whether every term of text prefixes some word of value.
func searchMatches(value, text string) bool {
	terms := repository.SearchTerms(text)
	if len(terms) == 0 {
		return false
	}
	words := repository.SearchTerms(value)
	for _, term := range terms {
		if !slices.ContainsFunc(words, func(w string) bool { return strings.HasPrefix(w, term) }) {
			return false
		}
	}
	return true
}

func encode(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: encode fields: %w", repository.ErrValidation, err)
	}
	return data, nil
}

func decode(collection, id string, e *entry) (*repository.Document, error) {
	fields := map[string]any{}
	if err := json.Unmarshal(e.data, &fields); err != nil {
		return nil, fmt.Errorf("%w: decode document %s/%s: %w", repository.ErrDocumentStore, collection, id, err)
	}
	return &repository.Document{
		ID:         id,
		Collection: collection,
		Fields:     fields,
		CreatedAt:  e.createdAt,
		UpdatedAt:  e.updatedAt,
	}, nil
}

func observe(op, collection, status string) {
	metrics.DocumentOperationsTotal.WithLabelValues(op, collection, status).Inc()
}

var _ repository.DocumentStore = (*DocumentStore)(nil)
