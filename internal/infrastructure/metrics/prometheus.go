// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gotube"

var (
	// DocumentOperationsTotal tracks document store operations.
	// Labels:
	//   - operation: create, get, update, delete, list
	//   - collection: videos, profiles, likes, ...
	//   - status: success, not_found, conflict, error
	DocumentOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_operations_total",
			Help:      "Total number of document store operations",
		},
		[]string{"operation", "collection", "status"},
	)

	// BlobOperationsTotal tracks blob store operations.
	// Labels:
	//   - operation: create, get, delete
	//   - backend: minio, s3, memory
	//   - status: success, not_found, error
	BlobOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blob_operations_total",
			Help:      "Total number of blob store operations",
		},
		[]string{"operation", "backend", "status"},
	)

	// EngagementTogglesTotal tracks toggle outcomes.
	// Labels:
	//   - kind: like, bookmark, subscription
	//   - result: present, absent
	EngagementTogglesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_toggles_total",
			Help:      "Total number of engagement toggles",
		},
		[]string{"kind", "result"},
	)

	// AssetCleanupTotal tracks best-effort asset deletes that needed cleanup.
	// Labels:
	//   - stage: failed (delete failed on a request path), queued, dropped, recovered
	AssetCleanupTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_cleanup_total",
			Help:      "Total number of asset cleanup events",
		},
		[]string{"stage"},
	)

	// SessionLookupsTotal tracks session resolution.
	// Labels:
	//   - result: hit, miss, error
	SessionLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_lookups_total",
			Help:      "Total number of session lookups",
		},
		[]string{"result"},
	)

	// SingleflightRequestsTotal tracks singleflight behavior.
	// Labels:
	//   - result: initiated (new execution), shared (reused result)
	SingleflightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "singleflight_requests_total",
			Help:      "Total number of singleflight requests",
		},
		[]string{"result"},
	)
)

// Operation status constants.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not_found"
	StatusConflict = "conflict"
	StatusError    = "error"
)

// Document operation constants.
const (
	DocOpCreate = "create"
	DocOpGet    = "get"
	DocOpUpdate = "update"
	DocOpDelete = "delete"
	DocOpList   = "list"
)

// Blob operation constants.
const (
	BlobOpCreate = "create"
	BlobOpGet    = "get"
	BlobOpDelete = "delete"
)

// Blob backend constants.
const (
	BackendMinIO  = "minio"
	BackendS3     = "s3"
	BackendMemory = "memory"
)

// Asset cleanup stage constants.
const (
	CleanupFailed    = "failed"
	CleanupQueued    = "queued"
	CleanupDropped   = "dropped"
	CleanupRecovered = "recovered"
)

// Session lookup result constants.
const (
	SessionHit   = "hit"
	SessionMiss  = "miss"
	SessionError = "error"
)

// Singleflight result constants.
const (
	SingleflightInitiated = "initiated"
	SingleflightShared    = "shared"
)
