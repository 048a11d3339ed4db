package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hszk-dev/gotube/internal/domain/repository"
)

func seedVideos(t *testing.T, s *DocumentStore, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		visibility := "public"
		if i%3 == 0 {
			visibility = "private"
		}
		_, err := s.CreateDoc(context.Background(), "videos", fmt.Sprintf("v%d", i), map[string]any{
			"title":      fmt.Sprintf("Episode %d of Go Tutorials", i),
			"visibility": visibility,
			"views":      i,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestDocumentStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()

	doc, err := s.CreateDoc(ctx, "profiles", "u1", map[string]any{"name": "Ada", "videos": []string{"v1"}})
	if err != nil {
		t.Fatalf("CreateDoc() error = %v", err)
	}
	if _, ok := doc.Fields["videos"].([]any); !ok {
		t.Errorf("CreateDoc() videos = %T, want JSON array", doc.Fields["videos"])
	}

	if _, err := s.CreateDoc(ctx, "profiles", "u1", nil); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("CreateDoc() duplicate error = %v, want ErrConflict", err)
	}

	updated, err := s.UpdateDoc(ctx, "profiles", "u1", map[string]any{"bio": "hello"})
	if err != nil {
		t.Fatalf("UpdateDoc() error = %v", err)
	}
	if updated.Fields["name"] != "Ada" || updated.Fields["bio"] != "hello" {
		t.Errorf("UpdateDoc() did not merge: %v", updated.Fields)
	}

	got, err := s.GetDoc(ctx, "profiles", "u1")
	if err != nil || got.Fields["bio"] != "hello" {
		t.Errorf("GetDoc() = %v, %v", got, err)
	}

	// Mutating a returned document must not leak into the store.
	got.Fields["bio"] = "changed"
	again, _ := s.GetDoc(ctx, "profiles", "u1")
	if again.Fields["bio"] != "hello" {
		t.Errorf("store shares field maps with callers")
	}

	if err := s.DeleteDoc(ctx, "profiles", "u1"); err != nil {
		t.Fatalf("DeleteDoc() error = %v", err)
	}
	if _, err := s.GetDoc(ctx, "profiles", "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("GetDoc() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteDoc(ctx, "profiles", "u1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("DeleteDoc() twice error = %v, want ErrNotFound", err)
	}
	if _, err := s.UpdateDoc(ctx, "profiles", "u1", nil); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("UpdateDoc() missing error = %v, want ErrNotFound", err)
	}
}

func TestDocumentStore_ListDocs(t *testing.T) {
	ctx := context.Background()
	s := NewDocumentStore()
	seedVideos(t, s, 9)

	tests := []struct {
		name      string
		queries   []repository.Query
		wantIDs   []string
		wantTotal int
		wantErr   error
	}{
		{
			name:      "insertion order",
			queries:   []repository.Query{repository.Limit(3)},
			wantIDs:   []string{"v1", "v2", "v3"},
			wantTotal: 9,
		},
		{
			name:      "equal filter",
			queries:   []repository.Query{repository.Equal("visibility", "private")},
			wantIDs:   []string{"v3", "v6", "v9"},
			wantTotal: 3,
		},
		{
			name:      "numeric equality",
			queries:   []repository.Query{repository.Equal("views", 4)},
			wantIDs:   []string{"v4"},
			wantTotal: 1,
		},
		{
			name: "cursor pages after the given document",
			queries: []repository.Query{
				repository.Equal("visibility", "public"),
				repository.CursorAfter("v4"),
				repository.Limit(2),
			},
			wantIDs:   []string{"v5", "v7"},
			wantTotal: 6,
		},
		{
			name:      "cursor document need not match filters",
			queries:   []repository.Query{repository.Equal("visibility", "public"), repository.CursorAfter("v6")},
			wantIDs:   []string{"v7", "v8"},
			wantTotal: 6,
		},
		{
			name: "search and visibility",
			queries: []repository.Query{repository.And(
				repository.Search("title", "tut episode"),
				repository.Equal("visibility", "private"),
			)},
			wantIDs:   []string{"v3", "v6", "v9"},
			wantTotal: 3,
		},
		{
			name:      "search is prefix based",
			queries:   []repository.Query{repository.Search("title", "torials")},
			wantIDs:   []string{},
			wantTotal: 0,
		},
		{
			name:    "missing cursor",
			queries: []repository.Query{repository.CursorAfter("nope")},
			wantErr: repository.ErrNotFound,
		},
		{
			name:    "invalid limit",
			queries: []repository.Query{repository.Limit(0)},
			wantErr: repository.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := s.ListDocs(ctx, "videos", tt.queries...)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ListDocs() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListDocs() unexpected error = %v", err)
			}

			if list.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", list.Total, tt.wantTotal)
			}
			if len(list.Documents) != len(tt.wantIDs) {
				t.Fatalf("len(Documents) = %d, want %d", len(list.Documents), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if list.Documents[i].ID != id {
					t.Errorf("Documents[%d].ID = %s, want %s", i, list.Documents[i].ID, id)
				}
			}
		})
	}
}

func TestDocumentStore_ListEmptyCollection(t *testing.T) {
	list, err := NewDocumentStore().ListDocs(context.Background(), "likes", repository.Equal("videoId", "v1"))
	if err != nil {
		t.Fatalf("ListDocs() error = %v", err)
	}
	if list.Total != 0 || list.Documents == nil || len(list.Documents) != 0 {
		t.Errorf("ListDocs() = %+v, want empty non-nil page", list)
	}
}
