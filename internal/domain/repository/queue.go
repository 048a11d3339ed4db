package repository

import (
	"context"
	"time"
)

// AssetCleanupTask asks the worker to delete an asset whose best-effort
// delete failed on a request path.
type AssetCleanupTask struct {
	Locator    string    `json:"locator"`
	Reason     string    `json:"reason"`
	RetryCount int       `json:"retry_count"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// CleanupQueue defines the interface for message queue operations.
// Implementations should be provided by the infrastructure layer (e.g., RabbitMQ).
type CleanupQueue interface {
	// PublishAssetCleanup sends a cleanup task to the queue.
	// Used by the API server when an asset delete fails.
	PublishAssetCleanup(ctx context.Context, task AssetCleanupTask) error

	// ConsumeAssetCleanup starts consuming cleanup tasks from the queue.
	// The handler function is called for each received task.
	// Returns when ctx is cancelled or the channel is closed.
	// Used by the worker service.
	ConsumeAssetCleanup(ctx context.Context, handler func(task AssetCleanupTask) error) error

	// Close gracefully closes the connection to the message queue.
	Close() error
}
