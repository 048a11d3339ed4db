package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/usecase"
)

// mockVideoService provides a configurable mock for VideoService.
type mockVideoService struct {
	publishFn        func(ctx context.Context, draft usecase.VideoDraft, onProgress repository.ProgressFunc) (*model.Video, error)
	updateFn         func(ctx context.Context, id string, patch usecase.VideoPatch, onProgress repository.ProgressFunc) (*model.Video, error)
	getFn            func(ctx context.Context, id string) (*model.Video, error)
	listFn           func(ctx context.Context, opts usecase.ListOptions) (*model.Page[model.Video], error)
	deleteFn         func(ctx context.Context, id string) error
	incrementViewsFn func(ctx context.Context, id string, expectedCurrent int64) (*model.Video, error)
}

func (m *mockVideoService) Publish(ctx context.Context, draft usecase.VideoDraft, onProgress repository.ProgressFunc) (*model.Video, error) {
	if m.publishFn != nil {
		return m.publishFn(ctx, draft, onProgress)
	}
	return nil, nil
}

func (m *mockVideoService) Update(ctx context.Context, id string, patch usecase.VideoPatch, onProgress repository.ProgressFunc) (*model.Video, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch, onProgress)
	}
	return nil, nil
}

func (m *mockVideoService) Get(ctx context.Context, id string) (*model.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockVideoService) List(ctx context.Context, opts usecase.ListOptions) (*model.Page[model.Video], error) {
	if m.listFn != nil {
		return m.listFn(ctx, opts)
	}
	return &model.Page[model.Video]{}, nil
}

func (m *mockVideoService) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockVideoService) IncrementViews(ctx context.Context, id string, expectedCurrent int64) (*model.Video, error) {
	if m.incrementViewsFn != nil {
		return m.incrementViewsFn(ctx, id, expectedCurrent)
	}
	return nil, nil
}

// mockEngagementService provides a configurable mock for EngagementService.
type mockEngagementService struct {
	toggleFn        func(kind model.RelationKind, subjectID, objectID string) (model.Membership, error)
	commentFn       func(ctx context.Context, subjectID, videoID, text string) (*model.Relation, error)
	listRelationsFn func(ctx context.Context, kind model.RelationKind, filter usecase.RelationFilter) ([]model.Relation, error)
}

func (m *mockEngagementService) toggle(kind model.RelationKind, subjectID, objectID string) (model.Membership, error) {
	if m.toggleFn != nil {
		return m.toggleFn(kind, subjectID, objectID)
	}
	return model.MembershipPresent, nil
}

func (m *mockEngagementService) ToggleLike(ctx context.Context, subjectID, videoID string) (model.Membership, error) {
	return m.toggle(model.KindLike, subjectID, videoID)
}

func (m *mockEngagementService) ToggleBookmark(ctx context.Context, subjectID, videoID string) (model.Membership, error) {
	return m.toggle(model.KindBookmark, subjectID, videoID)
}

func (m *mockEngagementService) ToggleSubscription(ctx context.Context, subjectID, channelID string) (model.Membership, error) {
	return m.toggle(model.KindSubscription, subjectID, channelID)
}

func (m *mockEngagementService) Comment(ctx context.Context, subjectID, videoID, text string) (*model.Relation, error) {
	if m.commentFn != nil {
		return m.commentFn(ctx, subjectID, videoID, text)
	}
	return nil, nil
}

func (m *mockEngagementService) ListRelations(ctx context.Context, kind model.RelationKind, filter usecase.RelationFilter) ([]model.Relation, error) {
	if m.listRelationsFn != nil {
		return m.listRelationsFn(ctx, kind, filter)
	}
	return nil, nil
}

func (m *mockEngagementService) MembershipOf(subjectID, objectID string, relations []model.Relation) *model.Relation {
	return model.MembershipOf(subjectID, objectID, relations)
}

// mockProfileService provides a configurable mock for ProfileService.
type mockProfileService struct {
	getFn           func(ctx context.Context, id string) (*model.Profile, error)
	ensureProfileFn func(ctx context.Context) (*model.Profile, error)
	updateFn        func(ctx context.Context, id string, patch usecase.ProfilePatch) (*model.Profile, error)
	updateAvatarFn  func(ctx context.Context, upload usecase.Upload) (*model.Profile, error)
	searchFn        func(ctx context.Context, query string) ([]model.Profile, error)
}

func (m *mockProfileService) Get(ctx context.Context, id string) (*model.Profile, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileService) EnsureProfile(ctx context.Context) (*model.Profile, error) {
	if m.ensureProfileFn != nil {
		return m.ensureProfileFn(ctx)
	}
	return nil, nil
}

func (m *mockProfileService) Update(ctx context.Context, id string, patch usecase.ProfilePatch) (*model.Profile, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch)
	}
	return nil, nil
}

func (m *mockProfileService) UpdateAvatar(ctx context.Context, upload usecase.Upload) (*model.Profile, error) {
	if m.updateAvatarFn != nil {
		return m.updateAvatarFn(ctx, upload)
	}
	return nil, nil
}

func (m *mockProfileService) Search(ctx context.Context, query string) ([]model.Profile, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, query)
	}
	return nil, nil
}

// mockAssetService provides a configurable mock for AssetService.
type mockAssetService struct {
	openFn func(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error)
}

func (m *mockAssetService) Upload(ctx context.Context, upload usecase.Upload, onProgress repository.ProgressFunc) (string, error) {
	return "", nil
}

func (m *mockAssetService) LocatorOf(fileID string) string {
	return repository.ViewLocator("http://localhost:8080/v1", "media", fileID)
}

func (m *mockAssetService) Open(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	if m.openFn != nil {
		return m.openFn(ctx, bucket, fileID)
	}
	return nil, nil, repository.ErrNotFound
}

func (m *mockAssetService) Delete(ctx context.Context, locator string) error {
	return nil
}

func (m *mockAssetService) Release(ctx context.Context, locator string) error {
	return nil
}

// mockSessionProvider resolves every request to identity, or rejects it when nil.
type mockSessionProvider struct {
	identity *model.Identity
}

func (m *mockSessionProvider) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	if m.identity == nil {
		return nil, repository.ErrUnauthenticated
	}
	identity := *m.identity
	return &identity, nil
}

func identityFor(id string) *usecase.IdentityResolver {
	if id == "" {
		return usecase.NewIdentityResolver(&mockSessionProvider{})
	}
	return usecase.NewIdentityResolver(&mockSessionProvider{identity: &model.Identity{ID: id, Name: id, Email: id + "@example.com"}})
}

// multipartRequest builds a multipart request with the given fields and files.
func multipartRequest(t *testing.T, method, target string, fields map[string]string, files map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for name, content := range files {
		part, err := mw.CreateFormFile(name, name+".bin")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(method, target, &body)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
