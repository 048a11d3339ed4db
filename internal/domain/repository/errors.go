package repository

import (
	"errors"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

var (
	// ErrValidation is returned when input has the wrong shape (e.g. empty comment text).
	// Domain model validation errors wrap it.
	ErrValidation = model.ErrValidation

	// ErrConflict is returned when a uniqueness constraint would be violated.
	ErrConflict = errors.New("conflict")

	// ErrNotFound is returned when a record or asset reference does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden is returned when the caller does not own the record being mutated.
	ErrForbidden = errors.New("forbidden")

	// ErrAssetStore wraps failures reported by the blob store.
	ErrAssetStore = errors.New("asset store error")

	// ErrDocumentStore wraps failures reported by the document store.
	ErrDocumentStore = errors.New("document store error")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when a blob does not exist in the bucket.
	ErrObjectNotFound = errors.New("object not found")
)
