package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/hszk-dev/gotube/internal/config"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/queue"
	"github.com/hszk-dev/gotube/internal/infrastructure/storage"
	"github.com/hszk-dev/gotube/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if !cfg.RabbitMQ.Enabled {
		logger.Info("cleanup queue disabled, nothing to consume")
		return nil
	}

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("blob store ready", slog.String("backend", cfg.Storage.Backend))

	// Tasks failing their last retry are parked on the dead-letter queue.
	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.MaxRetries = cfg.Worker.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// The consumer republishes failed tasks itself, so this asset service has no queue.
	assetSvc := usecase.NewAssetService(blobs, nil, usecase.AssetServiceConfig{
		Bucket: cfg.Storage.Bucket,
	})
	cleanupSvc := usecase.NewCleanupService(assetSvc, usecase.CleanupServiceConfig{
		MaxRetries: cfg.Worker.MaxRetries,
	})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// WaitGroup to track in-flight tasks
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming asset cleanup tasks")
		err := queueClient.ConsumeAssetCleanup(ctx, func(task repository.AssetCleanupTask) error {
			wg.Add(1)
			defer wg.Done()

			if err := cleanupSvc.ProcessTask(ctx, task); err != nil {
				logger.Error("cleanup task failed",
					slog.String("locator", task.Locator),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop consuming new messages.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some tasks may not have completed")
	}

	logger.Info("worker stopped")
	return nil
}

// openBlobStore connects to the configured remote blob store. The in-memory
// store is process-local, so a separate worker cannot clean it up.
func openBlobStore(ctx context.Context, cfg *config.Config) (repository.BlobStore, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case "memory":
		return nil, fmt.Errorf("BLOB_STORE=memory cannot be cleaned by a separate worker process")
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
			Bucket:          cfg.Storage.Bucket,
			PublicBaseURL:   cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to S3: %w", err)
		}
		return store, nil
	default:
		client, err := storage.NewClient(ctx, storage.ClientConfig{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			UseSSL:        cfg.MinIO.UseSSL,
			Bucket:        cfg.Storage.Bucket,
			PublicBaseURL: cfg.Storage.PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MinIO: %w", err)
		}
		return client, nil
	}
}
