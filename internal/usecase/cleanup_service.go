package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

// CleanupService defines the interface for out-of-band asset cleanup.
type CleanupService interface {
	// ProcessTask deletes the asset named by task.
	// A returned error makes the queue retry the task.
	ProcessTask(ctx context.Context, task repository.AssetCleanupTask) error
}

// CleanupServiceConfig holds configuration for CleanupService.
type CleanupServiceConfig struct {
	MaxRetries int
}

// DefaultCleanupServiceConfig returns the default configuration.
func DefaultCleanupServiceConfig() CleanupServiceConfig {
	return CleanupServiceConfig{MaxRetries: 5}
}

type cleanupService struct {
	assets     AssetService
	maxRetries int
}

// NewCleanupService creates a new CleanupService instance.
func NewCleanupService(assets AssetService, cfg CleanupServiceConfig) CleanupService {
	return &cleanupService{
		assets:     assets,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *cleanupService) ProcessTask(ctx context.Context, task repository.AssetCleanupTask) error {
	if task.RetryCount >= s.maxRetries {
		slog.Error("dropping asset cleanup task after max retries",
			"locator", task.Locator,
			"retry_count", task.RetryCount,
			"reason", task.Reason,
		)
		metrics.AssetCleanupTotal.WithLabelValues(metrics.CleanupDropped).Inc()
		return nil
	}

	start := time.Now()
	if err := s.assets.Delete(ctx, task.Locator); err != nil {
		return fmt.Errorf("cleanup asset %s: %w", task.Locator, err)
	}

	slog.Info("asset cleaned up",
		"locator", task.Locator,
		"retry_count", task.RetryCount,
		"duration", time.Since(start),
	)
	metrics.AssetCleanupTotal.WithLabelValues(metrics.CleanupRecovered).Inc()
	return nil
}
