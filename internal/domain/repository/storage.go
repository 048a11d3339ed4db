package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ProgressFunc receives upload progress as a percentage in 0..100.
// Calls are monotonically non-decreasing.
type ProgressFunc func(percent float64)

// FileInfo contains metadata about a stored blob.
type FileInfo struct {
	Size        int64
	ContentType string
}

// BlobStore defines the interface for binary asset storage.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type BlobStore interface {
	// CreateFile streams reader into bucket under fileID and returns the stored file ID.
	// size may be -1 when unknown; progress is then reported only at completion.
	// onProgress may be nil.
	CreateFile(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress ProgressFunc) (string, error)

	// GetFile opens a stored blob for reading.
	// Caller is responsible for closing the returned ReadCloser.
	// Returns ErrObjectNotFound if the blob does not exist.
	GetFile(ctx context.Context, bucket, fileID string) (io.ReadCloser, *FileInfo, error)

	// DeleteFile removes a blob.
	// Returns ErrObjectNotFound if the blob does not exist.
	DeleteFile(ctx context.Context, bucket, fileID string) error

	// FileViewLocator returns the retrievable locator of a blob. It is pure.
	FileViewLocator(bucket, fileID string) string
}

// ViewLocator builds the managed-asset locator:
// {baseURL}/storage/buckets/{bucket}/files/{fileID}/view
func ViewLocator(baseURL, bucket, fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view", strings.TrimRight(baseURL, "/"), bucket, fileID)
}
