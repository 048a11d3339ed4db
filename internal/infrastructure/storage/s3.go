package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// s3API is the subset of *s3.Client used by S3Store.
type s3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// s3Uploader is satisfied by *manager.Uploader.
type s3Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Config holds configuration for an S3-compatible backend.
type S3Config struct {
	Region          string
	Endpoint        string // Optional custom endpoint for S3-compatible services
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool

	Bucket        string
	PublicBaseURL string
}

// S3Store implements repository.BlobStore on Amazon S3.
type S3Store struct {
	client        s3API
	uploader      s3Uploader
	bucket        string
	publicBaseURL string
}

// NewS3Store creates an S3 blob store and verifies the bucket is reachable.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newS3StoreWithClient(ctx, client, manager.NewUploader(client), cfg.Bucket, cfg.PublicBaseURL)
}

func newS3StoreWithClient(ctx context.Context, client s3API, uploader s3Uploader, bucket, publicBaseURL string) (*S3Store, error) {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
		}
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	return &S3Store{
		client:        client,
		uploader:      uploader,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
	}, nil
}

// CreateFile uploads reader with the multipart manager, counting bytes as they are read.
func (s *S3Store) CreateFile(ctx context.Context, bucket, fileID string, reader io.Reader, size int64, contentType string, onProgress repository.ProgressFunc) (string, error) {
	progress := NewProgress(size, onProgress)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(fileID),
		Body:        io.TeeReader(reader, progress),
		ContentType: aws.String(contentType),
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		err = classifyS3Error(err, bucket, fileID)
		Observe(metrics.BlobOpCreate, metrics.BackendS3, err)
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	progress.Complete()
	Observe(metrics.BlobOpCreate, metrics.BackendS3, nil)
	return fileID, nil
}

// GetFile opens a stored object.
// Caller is responsible for closing the returned ReadCloser.
func (s *S3Store) GetFile(ctx context.Context, bucket, fileID string) (io.ReadCloser, *repository.FileInfo, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(fileID),
	})
	if err != nil {
		err = classifyS3Error(err, bucket, fileID)
		Observe(metrics.BlobOpGet, metrics.BackendS3, err)
		return nil, nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	Observe(metrics.BlobOpGet, metrics.BackendS3, nil)
	return out.Body, &repository.FileInfo{
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
	}, nil
}

// DeleteFile removes an object. DeleteObject succeeds for absent keys,
// so existence is checked first to report ErrObjectNotFound.
func (s *S3Store) DeleteFile(ctx context.Context, bucket, fileID string) error {
	if _, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		err = classifyS3Error(err, bucket, fileID)
		Observe(metrics.BlobOpDelete, metrics.BackendS3, err)
		return fmt.Errorf("failed to stat S3 object: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(fileID),
	}); err != nil {
		err = classifyS3Error(err, bucket, fileID)
		Observe(metrics.BlobOpDelete, metrics.BackendS3, err)
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	Observe(metrics.BlobOpDelete, metrics.BackendS3, nil)
	return nil
}

// FileViewLocator returns the public view locator of an object.
func (s *S3Store) FileViewLocator(bucket, fileID string) string {
	return repository.ViewLocator(s.publicBaseURL, bucket, fileID)
}

// Ping verifies the bucket is reachable.
func (s *S3Store) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("failed to ping s3: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return true
	default:
		return false
	}
}

func classifyS3Error(err error, bucket, fileID string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return fmt.Errorf("%w: %s/%s", repository.ErrObjectNotFound, bucket, fileID)
		case "NoSuchBucket":
			return fmt.Errorf("%w: %s", repository.ErrBucketNotFound, bucket)
		}
	}
	return fmt.Errorf("%w: %w", repository.ErrAssetStore, err)
}

// Compile-time verification that S3Store implements repository.BlobStore.
var _ repository.BlobStore = (*S3Store)(nil)
