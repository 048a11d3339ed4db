package usecase

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

const (
	oldVideoLocator = "http://localhost:8080/v1/storage/buckets/media/files/old-video/view"
	oldThumbLocator = "http://localhost:8080/v1/storage/buckets/media/files/old-thumb/view"
)

func videoDoc(id, ownerID, title string) *repository.Document {
	return &repository.Document{
		ID:         id,
		Collection: "videos",
		Fields: map[string]any{
			fieldTitle:            title,
			fieldDescription:      "original description",
			fieldVideoLocator:     oldVideoLocator,
			fieldThumbnailLocator: oldThumbLocator,
			fieldTags:             []any{"go", "tutorial"},
			fieldVisibility:       "public",
			fieldOwnerID:          ownerID,
			fieldViews:            float64(7),
		},
	}
}

func newDraft() VideoDraft {
	return VideoDraft{
		Title:       "Intro to Go",
		Description: "basics",
		Tags:        []string{"go"},
		Visibility:  model.VisibilityPublic,
		Video:       Upload{Reader: strings.NewReader("video"), Size: 5, FileName: "video.mp4"},
		Thumbnail:   Upload{Reader: strings.NewReader("thumb"), Size: 5, FileName: "thumb.png"},
	}
}

func hasQuery(queries []repository.Query, op repository.QueryOp) bool {
	return slices.ContainsFunc(queries, func(q repository.Query) bool { return q.Op == op })
}

func TestVideoService_Publish(t *testing.T) {
	tests := []struct {
		name      string
		caller    string
		draft     func() VideoDraft
		setupMock func(docs *mockDocumentStore, assets *mockAssetService)
		wantErr   error
		checkFn   func(t *testing.T, video *model.Video, assets *mockAssetService)
	}{
		{
			name:   "successful publish",
			caller: "user-1",
			draft:  newDraft,
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.createDocFn = func(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
					if collection != "videos" {
						t.Errorf("collection = %q, want videos", collection)
					}
					if fields[fieldOwnerID] != "user-1" {
						t.Errorf("ownerId = %v, want user-1", fields[fieldOwnerID])
					}
					return &repository.Document{ID: id, Collection: collection, Fields: fields}, nil
				}
				assets.uploadFn = func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
					if upload.FileName == "video.mp4" && onProgress == nil {
						t.Error("expected progress callback for the video upload")
					}
					if upload.FileName == "thumb.png" && onProgress != nil {
						t.Error("expected no progress callback for the thumbnail upload")
					}
					return assets.LocatorOf(upload.FileName), nil
				}
			},
			checkFn: func(t *testing.T, video *model.Video, assets *mockAssetService) {
				if video.ID == "" {
					t.Error("expected video ID to be set")
				}
				if video.OwnerID != "user-1" {
					t.Errorf("OwnerID = %q, want user-1", video.OwnerID)
				}
				if !strings.HasSuffix(video.VideoLocator, "/files/video.mp4/view") {
					t.Errorf("VideoLocator = %q", video.VideoLocator)
				}
				if !strings.HasSuffix(video.ThumbnailLocator, "/files/thumb.png/view") {
					t.Errorf("ThumbnailLocator = %q", video.ThumbnailLocator)
				}
				if video.Views != 0 {
					t.Errorf("Views = %d, want 0", video.Views)
				}
			},
		},
		{
			name:      "empty title",
			caller:    "user-1",
			draft:     func() VideoDraft { d := newDraft(); d.Title = "  "; return d },
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   model.ErrEmptyTitle,
		},
		{
			name:      "title too long",
			caller:    "user-1",
			draft:     func() VideoDraft { d := newDraft(); d.Title = strings.Repeat("a", 256); return d },
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   model.ErrTitleTooLong,
		},
		{
			name:      "invalid visibility",
			caller:    "user-1",
			draft:     func() VideoDraft { d := newDraft(); d.Visibility = "unlisted"; return d },
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   repository.ErrValidation,
		},
		{
			name:      "missing thumbnail",
			caller:    "user-1",
			draft:     func() VideoDraft { d := newDraft(); d.Thumbnail = Upload{}; return d },
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   repository.ErrValidation,
		},
		{
			name:      "unauthenticated",
			caller:    "",
			draft:     newDraft,
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   repository.ErrUnauthenticated,
		},
		{
			name:   "title already taken",
			caller: "user-1",
			draft:  newDraft,
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.listDocsFn = func(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
					return &repository.DocumentList{Documents: []repository.Document{*videoDoc("v-0", "user-2", "Intro to Go")}, Total: 1}, nil
				}
				assets.uploadFn = func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
					t.Error("Upload should not be called when the title is taken")
					return "", nil
				}
			},
			wantErr: repository.ErrConflict,
		},
		{
			name:   "upload failure aborts",
			caller: "user-1",
			draft:  newDraft,
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				assets.uploadFn = func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
					return "", repository.ErrAssetStore
				}
				docs.createDocFn = func(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
					t.Error("CreateDoc should not be called after an upload failure")
					return nil, nil
				}
			},
			wantErr: repository.ErrAssetStore,
		},
		{
			name:   "document store failure",
			caller: "user-1",
			draft:  newDraft,
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.createDocFn = func(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
					return nil, repository.ErrDocumentStore
				}
			},
			wantErr: repository.ErrDocumentStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocumentStore{}
			assets := &mockAssetService{}
			tt.setupMock(docs, assets)
			svc := NewVideoService(docs, assets, resolverFor(tt.caller), repository.DefaultCollections())

			video, err := svc.Publish(context.Background(), tt.draft(), func(float64) {})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Publish() unexpected error = %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, video, assets)
			}
		})
	}
}

func TestVideoService_Update(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	tests := []struct {
		name      string
		caller    string
		patch     VideoPatch
		setupMock func(docs *mockDocumentStore, assets *mockAssetService)
		wantErr   error
		checkFn   func(t *testing.T, video *model.Video, assets *mockAssetService)
	}{
		{
			name:      "partial update preserves untouched fields",
			caller:    "user-1",
			patch:     VideoPatch{Description: strPtr("new description")},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			checkFn: func(t *testing.T, video *model.Video, assets *mockAssetService) {
				if video.Description != "new description" {
					t.Errorf("Description = %q", video.Description)
				}
				if video.Title != "Intro to Go" {
					t.Errorf("Title = %q, want unchanged", video.Title)
				}
				if video.VideoLocator != oldVideoLocator || video.ThumbnailLocator != oldThumbLocator {
					t.Error("expected locators to be unchanged")
				}
				if !slices.Equal(video.Tags, []string{"go", "tutorial"}) {
					t.Errorf("Tags = %v, want unchanged", video.Tags)
				}
				if video.Views != 7 {
					t.Errorf("Views = %d, want 7", video.Views)
				}
				if len(assets.released) != 0 {
					t.Errorf("released %v, want nothing", assets.released)
				}
			},
		},
		{
			name:   "same title skips uniqueness check",
			caller: "user-1",
			patch:  VideoPatch{Title: strPtr("Intro to Go"), Tags: []string{"golang"}},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.listDocsFn = func(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
					t.Error("ListDocs should not be called for an unchanged title")
					return &repository.DocumentList{}, nil
				}
			},
			checkFn: func(t *testing.T, video *model.Video, assets *mockAssetService) {
				if !slices.Equal(video.Tags, []string{"golang"}) {
					t.Errorf("Tags = %v, want [golang]", video.Tags)
				}
			},
		},
		{
			name:   "new title taken by another video",
			caller: "user-1",
			patch:  VideoPatch{Title: strPtr("Advanced Go")},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.listDocsFn = func(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
					return &repository.DocumentList{Documents: []repository.Document{*videoDoc("v-2", "user-3", "Advanced Go")}, Total: 1}, nil
				}
			},
			wantErr: repository.ErrConflict,
		},
		{
			name:      "not owner",
			caller:    "user-2",
			patch:     VideoPatch{Description: strPtr("hijack")},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   repository.ErrForbidden,
		},
		{
			name:   "missing video",
			caller: "user-1",
			patch:  VideoPatch{Description: strPtr("x")},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				docs.getDocFn = func(ctx context.Context, collection, id string) (*repository.Document, error) {
					return nil, repository.ErrNotFound
				}
			},
			wantErr: repository.ErrNotFound,
		},
		{
			name:   "replace video uploads new then releases old",
			caller: "user-1",
			patch:  VideoPatch{Video: &Upload{Reader: strings.NewReader("v2"), Size: 2, FileName: "new-video"}},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				assets.uploadFn = func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
					if len(assets.released) != 0 {
						t.Error("old asset released before the new one was uploaded")
					}
					return assets.LocatorOf(upload.FileName), nil
				}
			},
			checkFn: func(t *testing.T, video *model.Video, assets *mockAssetService) {
				if !strings.Contains(video.VideoLocator, "/files/new-video/") {
					t.Errorf("VideoLocator = %q", video.VideoLocator)
				}
				if video.ThumbnailLocator != oldThumbLocator {
					t.Errorf("ThumbnailLocator = %q, want unchanged", video.ThumbnailLocator)
				}
				if !slices.Equal(assets.released, []string{oldVideoLocator}) {
					t.Errorf("released = %v, want [%s]", assets.released, oldVideoLocator)
				}
			},
		},
		{
			name:   "failed release does not block the update",
			caller: "user-1",
			patch:  VideoPatch{Thumbnail: &Upload{Reader: strings.NewReader("t2"), Size: 2, FileName: "new-thumb"}},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				assets.releaseFn = func(ctx context.Context, locator string) error {
					return repository.ErrAssetStore
				}
			},
			checkFn: func(t *testing.T, video *model.Video, assets *mockAssetService) {
				if !strings.Contains(video.ThumbnailLocator, "/files/new-thumb/") {
					t.Errorf("ThumbnailLocator = %q", video.ThumbnailLocator)
				}
			},
		},
		{
			name:   "upload failure keeps the old asset",
			caller: "user-1",
			patch:  VideoPatch{Video: &Upload{Reader: strings.NewReader("v2"), Size: 2}},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {
				assets.uploadFn = func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
					return "", repository.ErrAssetStore
				}
				docs.updateDocFn = func(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
					t.Error("UpdateDoc should not be called after an upload failure")
					return nil, nil
				}
			},
			wantErr: repository.ErrAssetStore,
			checkFn: nil,
		},
		{
			name:      "invalid visibility",
			caller:    "user-1",
			patch:     VideoPatch{Visibility: func() *model.Visibility { v := model.Visibility("hidden"); return &v }()},
			setupMock: func(docs *mockDocumentStore, assets *mockAssetService) {},
			wantErr:   repository.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := videoDoc("v-1", "user-1", "Intro to Go")
			docs := &mockDocumentStore{
				getDocFn: func(ctx context.Context, collection, id string) (*repository.Document, error) {
					return stored, nil
				},
				updateDocFn: func(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
					merged := maps.Clone(stored.Fields)
					maps.Copy(merged, patch)
					return &repository.Document{ID: id, Collection: collection, Fields: merged}, nil
				},
			}
			assets := &mockAssetService{}
			tt.setupMock(docs, assets)
			svc := NewVideoService(docs, assets, resolverFor(tt.caller), repository.DefaultCollections())

			video, err := svc.Update(context.Background(), "v-1", tt.patch, nil)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Update() error = %v, wantErr %v", err, tt.wantErr)
				}
				if len(assets.released) != 0 {
					t.Errorf("released %v on a failed update", assets.released)
				}
				return
			}
			if err != nil {
				t.Fatalf("Update() unexpected error = %v", err)
			}
			if tt.checkFn != nil {
				tt.checkFn(t, video, assets)
			}
		})
	}
}

func TestVideoService_UpdateLogsUnreleasedAsset(t *testing.T) {
	logs := captureLogs(t)

	docs := &mockDocumentStore{
		getDocFn: func(ctx context.Context, collection, id string) (*repository.Document, error) {
			return videoDoc(id, "user-1", "Intro to Go"), nil
		},
	}
	assets := &mockAssetService{
		releaseFn: func(ctx context.Context, locator string) error {
			return repository.ErrAssetStore
		},
	}
	svc := NewVideoService(docs, assets, resolverFor("user-1"), repository.DefaultCollections())

	_, err := svc.Update(context.Background(), "v-1", VideoPatch{
		Video: &Upload{Reader: strings.NewReader("v2"), Size: 2, FileName: "new-video"},
	}, nil)
	if err != nil {
		t.Fatalf("Update() unexpected error = %v", err)
	}

	out := logs.String()
	if !strings.Contains(out, `"video_id":"v-1"`) || !strings.Contains(out, oldVideoLocator) {
		t.Errorf("expected the unreleased asset to be logged with its video, got %s", out)
	}
}

func TestVideoService_List(t *testing.T) {
	pageOf := func(ids ...string) *repository.DocumentList {
		list := &repository.DocumentList{Total: 40}
		for _, id := range ids {
			list.Documents = append(list.Documents, *videoDoc(id, "user-1", "title "+id))
		}
		return list
	}

	tests := []struct {
		name        string
		caller      string
		opts        ListOptions
		result      *repository.DocumentList
		checkQuery  func(t *testing.T, queries []repository.Query)
		wantErr     error
		wantCursor  string
		wantHasMore bool
	}{
		{
			name:   "default page size",
			opts:   ListOptions{},
			result: pageOf("a", "b"),
			checkQuery: func(t *testing.T, queries []repository.Query) {
				if !slices.ContainsFunc(queries, func(q repository.Query) bool {
					return q.Op == repository.OpLimit && q.Values[0] == DefaultPageSize
				}) {
					t.Errorf("expected default limit in %v", queries)
				}
				if !slices.ContainsFunc(queries, func(q repository.Query) bool {
					return q.Op == repository.OpEqual && q.Field == fieldVisibility && q.Values[0] == "public"
				}) {
					t.Errorf("expected public visibility filter in %v", queries)
				}
			},
			wantCursor: "b",
		},
		{
			name:   "full page has more",
			opts:   ListOptions{Limit: 2, Cursor: "x", OwnerID: "user-1"},
			result: pageOf("c", "d"),
			checkQuery: func(t *testing.T, queries []repository.Query) {
				if !hasQuery(queries, repository.OpCursorAfter) {
					t.Error("expected cursor query")
				}
				if !slices.ContainsFunc(queries, func(q repository.Query) bool {
					return q.Op == repository.OpEqual && q.Field == fieldOwnerID && q.Values[0] == "user-1"
				}) {
					t.Error("expected owner filter")
				}
			},
			wantCursor:  "d",
			wantHasMore: true,
		},
		{
			name:   "limit is capped",
			opts:   ListOptions{Limit: 1000},
			result: pageOf(),
			checkQuery: func(t *testing.T, queries []repository.Query) {
				if !slices.ContainsFunc(queries, func(q repository.Query) bool {
					return q.Op == repository.OpLimit && q.Values[0] == MaxPageSize
				}) {
					t.Errorf("expected capped limit in %v", queries)
				}
			},
		},
		{
			name:   "search ignores limit and cursor",
			opts:   ListOptions{Search: "intro", Limit: 3, Cursor: "x"},
			result: pageOf("a", "b", "c"),
			checkQuery: func(t *testing.T, queries []repository.Query) {
				if !hasQuery(queries, repository.OpSearch) {
					t.Error("expected search query")
				}
				if hasQuery(queries, repository.OpLimit) || hasQuery(queries, repository.OpCursorAfter) {
					t.Errorf("search must not paginate: %v", queries)
				}
			},
		},
		{
			name:    "private listing of another owner",
			caller:  "user-2",
			opts:    ListOptions{Visibility: model.VisibilityPrivate, OwnerID: "user-1"},
			wantErr: repository.ErrForbidden,
		},
		{
			name:   "private listing of own videos",
			caller: "user-1",
			opts:   ListOptions{Visibility: model.VisibilityPrivate, OwnerID: "user-1"},
			result: pageOf("p"),
			checkQuery: func(t *testing.T, queries []repository.Query) {
				if !slices.ContainsFunc(queries, func(q repository.Query) bool {
					return q.Op == repository.OpEqual && q.Field == fieldVisibility && q.Values[0] == "private"
				}) {
					t.Errorf("expected private visibility filter in %v", queries)
				}
			},
			wantCursor: "p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := &mockDocumentStore{
				listDocsFn: func(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
					if tt.checkQuery != nil {
						tt.checkQuery(t, queries)
					}
					return tt.result, nil
				},
			}
			svc := NewVideoService(docs, &mockAssetService{}, resolverFor(tt.caller), repository.DefaultCollections())

			page, err := svc.List(context.Background(), tt.opts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("List() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("List() unexpected error = %v", err)
			}
			if page.NextCursor != tt.wantCursor {
				t.Errorf("NextCursor = %q, want %q", page.NextCursor, tt.wantCursor)
			}
			if page.HasMore != tt.wantHasMore {
				t.Errorf("HasMore = %v, want %v", page.HasMore, tt.wantHasMore)
			}
			if page.Total != tt.result.Total {
				t.Errorf("Total = %d, want %d", page.Total, tt.result.Total)
			}
		})
	}
}

func TestVideoService_Delete(t *testing.T) {
	tests := []struct {
		name         string
		caller       string
		getErr       error
		releaseErr   error
		wantErr      error
		wantReleased int
		wantDeleted  bool
	}{
		{
			name:         "owner deletes",
			caller:       "user-1",
			wantReleased: 2,
			wantDeleted:  true,
		},
		{
			name:         "release failure does not block delete",
			caller:       "user-1",
			releaseErr:   repository.ErrAssetStore,
			wantReleased: 2,
			wantDeleted:  true,
		},
		{
			name:   "missing video is success",
			caller: "user-1",
			getErr: repository.ErrNotFound,
		},
		{
			name:    "not owner",
			caller:  "user-2",
			wantErr: repository.ErrForbidden,
		},
		{
			name:    "unauthenticated",
			caller:  "",
			wantErr: repository.ErrUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			docs := &mockDocumentStore{
				getDocFn: func(ctx context.Context, collection, id string) (*repository.Document, error) {
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return videoDoc(id, "user-1", "Intro to Go"), nil
				},
				deleteDocFn: func(ctx context.Context, collection, id string) error {
					deleted = true
					return nil
				},
			}
			assets := &mockAssetService{
				releaseFn: func(ctx context.Context, locator string) error {
					return tt.releaseErr
				},
			}
			svc := NewVideoService(docs, assets, resolverFor(tt.caller), repository.DefaultCollections())

			err := svc.Delete(context.Background(), "v-1")

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Delete() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Errorf("Delete() unexpected error = %v", err)
			}
			if len(assets.released) != tt.wantReleased {
				t.Errorf("released %d assets, want %d", len(assets.released), tt.wantReleased)
			}
			if tt.wantReleased == 2 {
				released := slices.Sorted(slices.Values(assets.released))
				want := slices.Sorted(slices.Values([]string{oldVideoLocator, oldThumbLocator}))
				if !slices.Equal(released, want) {
					t.Errorf("released = %v, want %v", released, want)
				}
			}
			if deleted != tt.wantDeleted {
				t.Errorf("record deleted = %v, want %v", deleted, tt.wantDeleted)
			}
		})
	}
}

func TestVideoService_IncrementViews(t *testing.T) {
	docs := &mockDocumentStore{
		updateDocFn: func(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
			if patch[fieldViews] != int64(8) {
				t.Errorf("views patch = %v, want 8", patch[fieldViews])
			}
			doc := videoDoc(id, "user-1", "Intro to Go")
			maps.Copy(doc.Fields, patch)
			return doc, nil
		},
	}
	svc := NewVideoService(docs, &mockAssetService{}, resolverFor(""), repository.DefaultCollections())

	video, err := svc.IncrementViews(context.Background(), "v-1", 7)
	if err != nil {
		t.Fatalf("IncrementViews() unexpected error = %v", err)
	}
	if video.Views != 8 {
		t.Errorf("Views = %d, want 8", video.Views)
	}

	if _, err := svc.IncrementViews(context.Background(), "v-1", -1); !errors.Is(err, repository.ErrValidation) {
		t.Errorf("IncrementViews(-1) error = %v, want ErrValidation", err)
	}
}
