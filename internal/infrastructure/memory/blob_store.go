package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
	"github.com/hszk-dev/gotube/internal/infrastructure/storage"
)

type blob struct {
	data        []byte
	contentType string
}

// BlobStore implements repository.BlobStore in memory.
// Buckets spring into existence on first write.
type BlobStore struct {
	mu            sync.RWMutex
	publicBaseURL string
	buckets       map[string]map[string]blob
}

// NewBlobStore creates an empty BlobStore whose locators start with publicBaseURL.
func NewBlobStore(publicBaseURL string) *BlobStore {
	return &BlobStore{
		publicBaseURL: publicBaseURL,
		buckets:       make(map[string]map[string]blob),
	}
}

func (s *BlobStore) CreateFile(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress repository.ProgressFunc) (string, error) {
	progress := storage.NewProgress(size, onProgress)

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.TeeReader(reader, progress)); err != nil {
		err = fmt.Errorf("%w: read upload: %w", repository.ErrAssetStore, err)
		storage.Observe(metrics.BlobOpCreate, metrics.BackendMemory, err)
		return "", err
	}
	if err := ctx.Err(); err != nil {
		storage.Observe(metrics.BlobOpCreate, metrics.BackendMemory, err)
		return "", fmt.Errorf("%w: %w", repository.ErrAssetStore, err)
	}

	s.mu.Lock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = make(map[string]blob)
	}
	s.buckets[bucket][fileID] = blob{data: buf.Bytes(), contentType: contentType}
	s.mu.Unlock()

	progress.Complete()
	storage.Observe(metrics.BlobOpCreate, metrics.BackendMemory, nil)
	return fileID, nil
}

func (s *BlobStore) GetFile(_ context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	s.mu.RLock()
	b, ok := s.buckets[bucket][fileID]
	s.mu.RUnlock()

	if !ok {
		err := fmt.Errorf("%w: %s/%s", repository.ErrObjectNotFound, bucket, fileID)
		storage.Observe(metrics.BlobOpGet, metrics.BackendMemory, err)
		return nil, nil, err
	}

	storage.Observe(metrics.BlobOpGet, metrics.BackendMemory, nil)
	return io.NopCloser(bytes.NewReader(b.data)), &repository.FileInfo{
		Size:        int64(len(b.data)),
		ContentType: b.contentType,
	}, nil
}

func (s *BlobStore) DeleteFile(_ context.Context, bucket, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[bucket][fileID]; !ok {
		err := fmt.Errorf("%w: %s/%s", repository.ErrObjectNotFound, bucket, fileID)
		storage.Observe(metrics.BlobOpDelete, metrics.BackendMemory, err)
		return err
	}
	delete(s.buckets[bucket], fileID)

	storage.Observe(metrics.BlobOpDelete, metrics.BackendMemory, nil)
	return nil
}

func (s *BlobStore) FileViewLocator(bucket, fileID string) string {
	return repository.ViewLocator(s.publicBaseURL, bucket, fileID)
}

// Has reports whether a blob is stored.
func (s *BlobStore) Has(bucket, fileID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket][fileID]
	return ok
}

var _ repository.BlobStore = (*BlobStore)(nil)
