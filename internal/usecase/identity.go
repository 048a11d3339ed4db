package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
)

// IdentityResolver resolves the caller of a request through a session provider.
type IdentityResolver struct {
	sessions repository.SessionProvider
}

// NewIdentityResolver creates a new IdentityResolver instance.
func NewIdentityResolver(sessions repository.SessionProvider) *IdentityResolver {
	return &IdentityResolver{sessions: sessions}
}

// Current returns the identity bound to ctx.
// Returns ErrUnauthenticated if there is none.
func (r *IdentityResolver) Current(ctx context.Context) (*model.Identity, error) {
	if r == nil || r.sessions == nil {
		return nil, repository.ErrUnauthenticated
	}

	identity, err := r.sessions.CurrentIdentity(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if identity == nil || identity.ID == "" {
		return nil, repository.ErrUnauthenticated
	}

	return identity, nil
}
