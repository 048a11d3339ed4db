package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// objectReader abstracts minio.Object for testability.
// *minio.Object satisfies this interface.
type objectReader interface {
	io.ReadCloser
	Stat() (minio.ObjectInfo, error)
}

// minioClient defines the interface for MinIO operations.
// This abstraction allows for easier unit testing with mocks.
type minioClient interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// minioClientAdapter wraps *minio.Client to implement minioClient interface.
// This is necessary because *minio.Client.GetObject returns *minio.Object,
// but our interface returns objectReader for testability.
type minioClientAdapter struct {
	client *minio.Client
}

func (a *minioClientAdapter) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return a.client.BucketExists(ctx, bucketName)
}

func (a *minioClientAdapter) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return a.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (a *minioClientAdapter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (objectReader, error) {
	return a.client.GetObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return a.client.RemoveObject(ctx, bucketName, objectName, opts)
}

func (a *minioClientAdapter) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return a.client.StatObject(ctx, bucketName, objectName, opts)
}

// ClientConfig holds configuration for the MinIO client.
type ClientConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	// Bucket is verified at startup.
	Bucket string

	// PublicBaseURL prefixes file view locators, e.g. http://localhost:8080/v1.
	PublicBaseURL string
}

// Client wraps a MinIO client and implements repository.BlobStore.
type Client struct {
	client        minioClient
	bucket        string
	publicBaseURL string
}

// NewClient creates a new MinIO client.
// It verifies the bucket exists during initialization to fail fast on misconfiguration.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return newClientWithMinioClient(ctx, &minioClientAdapter{client: client}, cfg.Bucket, cfg.PublicBaseURL)
}

// newClientWithMinioClient creates a Client with a given minioClient implementation.
// This is used for dependency injection in tests.
func newClientWithMinioClient(ctx context.Context, client minioClient, bucket, publicBaseURL string) (*Client, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	}

	return &Client{
		client:        client,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
	}, nil
}

// CreateFile streams reader into the bucket, reporting progress through minio's hook.
func (c *Client) CreateFile(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress repository.ProgressFunc) (string, error) {
	progress := NewProgress(size, onProgress)

	_, err := c.client.PutObject(ctx, bucket, fileID, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
		Progress:    progress,
	})
	if err != nil {
		err = classifyMinioError(err, bucket, fileID)
		Observe(metrics.BlobOpCreate, metrics.BackendMinIO, err)
		return "", fmt.Errorf("failed to upload object: %w", err)
	}

	progress.Complete()
	Observe(metrics.BlobOpCreate, metrics.BackendMinIO, nil)
	return fileID, nil
}

// GetFile opens a stored object.
// Caller is responsible for closing the returned ReadCloser.
func (c *Client) GetFile(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	obj, err := c.client.GetObject(ctx, bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		Observe(metrics.BlobOpGet, metrics.BackendMinIO, err)
		return nil, nil, fmt.Errorf("%w: failed to get object: %w", repository.ErrAssetStore, err)
	}

	// GetObject returns a lazy reader that doesn't fail until read.
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close() // Best effort close on error path
		err = classifyMinioError(err, bucket, fileID)
		Observe(metrics.BlobOpGet, metrics.BackendMinIO, err)
		return nil, nil, fmt.Errorf("failed to stat object: %w", err)
	}

	Observe(metrics.BlobOpGet, metrics.BackendMinIO, nil)
	return obj, &repository.FileInfo{Size: info.Size, ContentType: info.ContentType}, nil
}

// DeleteFile removes an object. RemoveObject succeeds for absent keys,
// so existence is checked first to report ErrObjectNotFound.
func (c *Client) DeleteFile(ctx context.Context, bucket, fileID string) error {
	if _, err := c.client.StatObject(ctx, bucket, fileID, minio.StatObjectOptions{}); err != nil {
		err = classifyMinioError(err, bucket, fileID)
		Observe(metrics.BlobOpDelete, metrics.BackendMinIO, err)
		return fmt.Errorf("failed to stat object: %w", err)
	}

	if err := c.client.RemoveObject(ctx, bucket, fileID, minio.RemoveObjectOptions{}); err != nil {
		err = classifyMinioError(err, bucket, fileID)
		Observe(metrics.BlobOpDelete, metrics.BackendMinIO, err)
		return fmt.Errorf("failed to delete object: %w", err)
	}

	Observe(metrics.BlobOpDelete, metrics.BackendMinIO, nil)
	return nil
}

// FileViewLocator returns the public view locator of an object.
func (c *Client) FileViewLocator(bucket, fileID string) string {
	return repository.ViewLocator(c.publicBaseURL, bucket, fileID)
}

// Ping verifies the MinIO connection is alive by checking bucket access.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to ping minio: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func classifyMinioError(err error, bucket, fileID string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return fmt.Errorf("%w: %s/%s", repository.ErrObjectNotFound, bucket, fileID)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
	default:
		return fmt.Errorf("%w: %w", repository.ErrAssetStore, err)
	}
}

// Compile-time verification that Client implements repository.BlobStore.
var _ repository.BlobStore = (*Client)(nil)
