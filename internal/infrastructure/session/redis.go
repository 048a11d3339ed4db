// Package session resolves callers from opaque bearer tokens stored in Redis.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/gotube/internal/domain/model"
	"github.com/hszk-dev/gotube/internal/domain/repository"
	"github.com/hszk-dev/gotube/internal/infrastructure/metrics"
)

const (
	// sessionKeyPrefix is the prefix for session keys in Redis.
	sessionKeyPrefix = "session:"

	// DefaultTTL is used when the store is created with a non-positive TTL.
	DefaultTTL = 24 * time.Hour
)

// sessionJSON is the JSON representation of a session.
// Using explicit struct avoids coupling to domain model's JSON tags.
type sessionJSON struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// RedisStore keeps sessions in Redis and implements repository.SessionProvider.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	sfGroup singleflight.Group
}

// NewRedisStore creates a new Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Create issues a new session token for identity.
func (s *RedisStore) Create(ctx context.Context, identity model.Identity) (string, error) {
	if identity.ID == "" {
		return "", fmt.Errorf("%w: session requires a user id", repository.ErrValidation)
	}

	data, err := json.Marshal(sessionJSON{
		UserID:    identity.ID,
		Name:      identity.Name,
		Email:     identity.Email,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("serialize session: %w", err)
	}

	token := uuid.NewString()
	if err := s.client.Set(ctx, buildKey(token), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set: %w", err)
	}

	return token, nil
}

// Get resolves a token to its identity.
// Returns ErrUnauthenticated when the token is unknown or expired.
func (s *RedisStore) Get(ctx context.Context, token string) (*model.Identity, error) {
	data, err := s.client.Get(ctx, buildKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.SessionLookupsTotal.WithLabelValues(metrics.SessionMiss).Inc()
			return nil, fmt.Errorf("%w: unknown or expired session", repository.ErrUnauthenticated)
		}
		metrics.SessionLookupsTotal.WithLabelValues(metrics.SessionError).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var v sessionJSON
	if err := json.Unmarshal(data, &v); err != nil {
		metrics.SessionLookupsTotal.WithLabelValues(metrics.SessionError).Inc()
		return nil, fmt.Errorf("deserialize session: %w", err)
	}

	metrics.SessionLookupsTotal.WithLabelValues(metrics.SessionHit).Inc()
	return &model.Identity{ID: v.UserID, Name: v.Name, Email: v.Email}, nil
}

// Delete revokes a session. Deleting an unknown token is not an error.
func (s *RedisStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, buildKey(token)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// CurrentIdentity resolves the token carried by ctx.
// Uses singleflight so a burst of requests with one token costs one lookup.
func (s *RedisStore) CurrentIdentity(ctx context.Context) (*model.Identity, error) {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("%w: no session token", repository.ErrUnauthenticated)
	}

	result, err, shared := s.sfGroup.Do(token, func() (any, error) {
		return s.Get(ctx, token)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return nil, err
	}

	// Shared results are handed to several callers; give each its own copy.
	identity := *result.(*model.Identity)
	return &identity, nil
}

// Ping verifies the Redis connection is alive.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func buildKey(token string) string {
	return sessionKeyPrefix + token
}

// Compile-time verification that RedisStore implements repository.SessionProvider.
var _ repository.SessionProvider = (*RedisStore)(nil)
