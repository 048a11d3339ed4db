package usecase

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// mockDocumentStore provides a configurable mock for DocumentStore.
type mockDocumentStore struct {
	createDocFn func(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error)
	getDocFn    func(ctx context.Context, collection, id string) (*repository.Document, error)
	updateDocFn func(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error)
	deleteDocFn func(ctx context.Context, collection, id string) error
	listDocsFn  func(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error)
}

func (m *mockDocumentStore) CreateDoc(ctx context.Context, collection, id string, fields map[string]any) (*repository.Document, error) {
	if m.createDocFn != nil {
		return m.createDocFn(ctx, collection, id, fields)
	}
	return &repository.Document{ID: id, Collection: collection, Fields: fields}, nil
}

func (m *mockDocumentStore) GetDoc(ctx context.Context, collection, id string) (*repository.Document, error) {
	if m.getDocFn != nil {
		return m.getDocFn(ctx, collection, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockDocumentStore) UpdateDoc(ctx context.Context, collection, id string, patch map[string]any) (*repository.Document, error) {
	if m.updateDocFn != nil {
		return m.updateDocFn(ctx, collection, id, patch)
	}
	return &repository.Document{ID: id, Collection: collection, Fields: patch}, nil
}

func (m *mockDocumentStore) DeleteDoc(ctx context.Context, collection, id string) error {
	if m.deleteDocFn != nil {
		return m.deleteDocFn(ctx, collection, id)
	}
	return nil
}

func (m *mockDocumentStore) ListDocs(ctx context.Context, collection string, queries ...repository.Query) (*repository.DocumentList, error) {
	if m.listDocsFn != nil {
		return m.listDocsFn(ctx, collection, queries...)
	}
	return &repository.DocumentList{}, nil
}

// mockBlobStore provides a configurable mock for BlobStore.
type mockBlobStore struct {
	mu sync.Mutex

	createFileFn func(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress repository.ProgressFunc) (string, error)
	getFileFn    func(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error)
	deleteFileFn func(ctx context.Context, bucket, fileID string) error

	deleteCalls int
}

func (m *mockBlobStore) CreateFile(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress repository.ProgressFunc) (string, error) {
	if m.createFileFn != nil {
		return m.createFileFn(ctx, bucket, fileID, reader, size, contentType, onProgress)
	}
	return fileID, nil
}

func (m *mockBlobStore) GetFile(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	if m.getFileFn != nil {
		return m.getFileFn(ctx, bucket, fileID)
	}
	return nil, nil, repository.ErrObjectNotFound
}

func (m *mockBlobStore) DeleteFile(ctx context.Context, bucket, fileID string) error {
	m.mu.Lock()
	m.deleteCalls++
	m.mu.Unlock()

	if m.deleteFileFn != nil {
		return m.deleteFileFn(ctx, bucket, fileID)
	}
	return nil
}

func (m *mockBlobStore) FileViewLocator(bucket, fileID string) string {
	return repository.ViewLocator("http://localhost:8080/v1", bucket, fileID)
}

// mockCleanupQueue provides a configurable mock for CleanupQueue.
type mockCleanupQueue struct {
	mu        sync.Mutex
	published []repository.AssetCleanupTask

	publishFn func(ctx context.Context, task repository.AssetCleanupTask) error
}

func (m *mockCleanupQueue) PublishAssetCleanup(ctx context.Context, task repository.AssetCleanupTask) error {
	if m.publishFn != nil {
		if err := m.publishFn(ctx, task); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.published = append(m.published, task)
	m.mu.Unlock()
	return nil
}

func (m *mockCleanupQueue) ConsumeAssetCleanup(ctx context.Context, handler func(task repository.AssetCleanupTask) error) error {
	return nil
}

func (m *mockCleanupQueue) Close() error {
	return nil
}

// mockSessionProvider returns a fixed identity, or ErrUnauthenticated when identity is nil.
type mockSessionProvider struct {
	identity *model.Identity
	err      error
}

func (m *mockSessionProvider) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.identity == nil {
		return nil, repository.ErrUnauthenticated
	}
	identity := *m.identity
	return &identity, nil
}

func resolverFor(id string) *IdentityResolver {
	if id == "" {
		return NewIdentityResolver(&mockSessionProvider{})
	}
	return NewIdentityResolver(&mockSessionProvider{identity: &model.Identity{
		ID:    id,
		Name:  "User " + id,
		Email: id + "@example.com",
	}})
}

// mockAssetService provides a configurable mock for AssetService.
type mockAssetService struct {
	mu       sync.Mutex
	released []string

	uploadFn  func(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error)
	deleteFn  func(ctx context.Context, locator string) error
	releaseFn func(ctx context.Context, locator string) error
}

func (m *mockAssetService) Upload(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, upload, onProgress)
	}
	return m.LocatorOf(upload.FileName), nil
}

func (m *mockAssetService) LocatorOf(fileID string) string {
	return repository.ViewLocator("http://localhost:8080/v1", "media", fileID)
}

func (m *mockAssetService) Open(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	return nil, nil, repository.ErrNotFound
}

func (m *mockAssetService) Delete(ctx context.Context, locator string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, locator)
	}
	return nil
}

func (m *mockAssetService) Release(ctx context.Context, locator string) error {
	m.mu.Lock()
	m.released = append(m.released, locator)
	m.mu.Unlock()

	if m.releaseFn != nil {
		return m.releaseFn(ctx, locator)
	}
	return nil
}

// captureLogs routes the default logger into the returned buffer for the test's duration.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}
