// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyvault/studyvault/internal/backend"
	"github.com/studyvault/studyvault/internal/core"
)

// TokenRepository keeps the backend refresh token of every workspace in
// Redis, keyed by the hash of the workspace's session id.
type TokenRepository struct {
	rdb *redis.Client
}

func NewTokenRepository(rdb *redis.Client) *TokenRepository {
	return &TokenRepository{rdb: rdb}
}

// ForSession returns the store for one workspace.
func (r *TokenRepository) ForSession(sessionID string) backend.TokenStore {
	return &sessionTokens{
		rdb: r.rdb,
		key: core.Key("session", core.HashToken(sessionID)),
	}
}

// Count returns the number of persisted sessions.
func (r *TokenRepository) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)

	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, core.Key("session", "*"), 100).Result()
		if err != nil {
			return 0, fmt.Errorf("count sessions: %w", err)
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}

type sessionTokens struct {
	rdb *redis.Client
	key string
}

func (t *sessionTokens) Load(ctx context.Context) (string, error) {
	token, err := t.rdb.Get(ctx, t.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load refresh token: %w", err)
	}
	return token, nil
}

func (t *sessionTokens) Save(ctx context.Context, refreshToken string, ttl time.Duration) error {
	if err := t.rdb.Set(ctx, t.key, refreshToken, ttl).Err(); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

func (t *sessionTokens) Clear(ctx context.Context) error {
	if err := t.rdb.Del(ctx, t.key).Err(); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}
