package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// managedLocatorMarker identifies locators that point into our blob store.
const managedLocatorMarker = "/storage/buckets/"

// Upload is a binary asset to be stored.
type Upload struct {
	Reader      io.Reader
	Size        int64 // -1 if unknown
	ContentType string
	FileName    string
}

// AssetService defines the interface for binary asset lifecycle operations.
type AssetService interface {
	// Upload streams the asset into the blob store and returns its locator.
	// onProgress may be nil.
	Upload(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error)

	// LocatorOf returns the locator of a stored file in the configured bucket.
	LocatorOf(fileID string) string

	// Open streams a stored asset.
	// Returns ErrNotFound if the asset does not exist.
	Open(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error)

	// Delete removes the asset behind locator.
	// Unmanaged locators and already missing assets are a no-op.
	Delete(ctx context.Context, locator string) error

	// Release deletes on a best-effort basis. A failure is logged and queued
	// for out-of-band cleanup before being returned.
	Release(ctx context.Context, locator string) error
}

// AssetServiceConfig holds configuration for AssetService.
type AssetServiceConfig struct {
	Bucket string
}

type assetService struct {
	blobs  repository.BlobStore
	queue  repository.CleanupQueue
	bucket string
}

// NewAssetService creates a new AssetService instance.
// queue may be nil, in which case failed releases are only logged.
func NewAssetService(
	blobs repository.BlobStore,
	queue repository.CleanupQueue,
	cfg AssetServiceConfig,
) AssetService {
	return &assetService{
		blobs:  blobs,
		queue:  queue,
		bucket: cfg.Bucket,
	}
}

func (s *assetService) Upload(ctx context.Context, upload Upload, onProgress repository.ProgressFunc) (string, error) {
	if upload.Reader == nil {
		return "", fmt.Errorf("%w: upload has no content", repository.ErrValidation)
	}

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fileID, err := s.blobs.CreateFile(ctx, s.bucket, uuid.NewString(), upload.Reader, upload.Size, contentType, onProgress)
	if err != nil {
		return "", assetStoreError("upload asset", err)
	}

	return s.LocatorOf(fileID), nil
}

func (s *assetService) LocatorOf(fileID string) string {
	return s.blobs.FileViewLocator(s.bucket, fileID)
}

func (s *assetService) Open(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	// Only the configured bucket is served; other buckets the credentials reach stay invisible.
	if bucket != s.bucket {
		return nil, nil, fmt.Errorf("%w: asset %s/%s", repository.ErrNotFound, bucket, fileID)
	}

	body, info, err := s.blobs.GetFile(ctx, bucket, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) || errors.Is(err, repository.ErrBucketNotFound) {
			return nil, nil, fmt.Errorf("%w: asset %s/%s", repository.ErrNotFound, bucket, fileID)
		}
		return nil, nil, assetStoreError("open asset", err)
	}
	return body, info, nil
}

func (s *assetService) Delete(ctx context.Context, locator string) error {
	bucket, fileID, ok := ParseLocator(locator)
	if !ok || bucket != s.bucket {
		return nil
	}

	if err := s.blobs.DeleteFile(ctx, bucket, fileID); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil
		}
		return assetStoreError("delete asset", err)
	}

	return nil
}

func (s *assetService) Release(ctx context.Context, locator string) error {
	err := s.Delete(ctx, locator)
	if err == nil {
		return nil
	}

	slog.Warn("failed to release asset",
		"locator", locator,
		"error", err,
	)
	metrics.AssetCleanupTotal.WithLabelValues(metrics.CleanupFailed).Inc()

	if s.queue == nil {
		return err
	}

	task := repository.AssetCleanupTask{
		Locator:    locator,
		Reason:     err.Error(),
		EnqueuedAt: time.Now(),
	}
	// The request may already be cancelled; the task must still be queued.
	if qErr := s.queue.PublishAssetCleanup(context.WithoutCancel(ctx), task); qErr != nil {
		slog.Error("failed to queue asset cleanup",
			"locator", locator,
			"error", qErr,
		)
		return err
	}
	metrics.AssetCleanupTotal.WithLabelValues(metrics.CleanupQueued).Inc()

	return err
}

// ParseLocator extracts the bucket and file id from a managed locator of the form
// <base>/storage/buckets/<bucket>/files/<fileID>/view.
// ok is false for any locator that is not a managed asset.
func ParseLocator(locator string) (bucket, fileID string, ok bool) {
	i := strings.Index(locator, managedLocatorMarker)
	if i < 0 {
		return "", "", false
	}

	rest := locator[i+len(managedLocatorMarker):]
	bucket, rest, found := strings.Cut(rest, "/files/")
	if !found || bucket == "" || strings.Contains(bucket, "/") {
		return "", "", false
	}

	fileID, _, found = strings.Cut(rest, "/view")
	if !found || fileID == "" || strings.Contains(fileID, "/") {
		return "", "", false
	}

	return bucket, fileID, true
}

func assetStoreError(op string, err error) error {
	if errors.Is(err, repository.ErrAssetStore) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", repository.ErrAssetStore, op, err)
}
