package repository

import (
	"context"

	"github.com/hszk-dev/gotube/internal/domain/model"
)

// SessionProvider resolves the caller bound to ctx.
// Implementations should be provided by the infrastructure layer (e.g., Redis).
type SessionProvider interface {
	// CurrentIdentity returns the caller's identity.
	// Returns ErrUnauthenticated if ctx carries no valid session.
	CurrentIdentity(ctx context.Context) (*model.Identity, error)
}
