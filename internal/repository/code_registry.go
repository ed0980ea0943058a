package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const codeKeyPrefix = "attendance:code:"

// CodeRegistry reserves redemption codes in Redis so concurrent session
// creation across processes cannot hand out the same open code.
type CodeRegistry struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCodeRegistry constructs a registry. A nil client makes every call a no-op
// that always succeeds.
func NewCodeRegistry(client *redis.Client, logger *zap.Logger) *CodeRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CodeRegistry{client: client, logger: logger}
}

// Reserve claims code for sessionID until ttl elapses. It returns false when
// another open session holds the code.
func (r *CodeRegistry) Reserve(ctx context.Context, code, sessionID string, ttl time.Duration) (bool, error) {
	if r == nil || r.client == nil {
		return true, nil
	}
	ok, err := r.client.SetNX(ctx, codeKeyPrefix+code, sessionID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis reserve code: %w", err)
	}
	return ok, nil
}

// Release frees a reservation held by sessionID.
func (r *CodeRegistry) Release(ctx context.Context, code, sessionID string) error {
	if r == nil || r.client == nil {
		return nil
	}
	key := codeKeyPrefix + code
	owner, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return nil
		}
		return fmt.Errorf("redis get code: %w", err)
	}
	if owner != sessionID {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis release code: %w", err)
	}
	return nil
}

// Lookup returns the session that holds code, or "" when none does.
func (r *CodeRegistry) Lookup(ctx context.Context, code string) (string, error) {
	if r == nil || r.client == nil {
		return "", nil
	}
	owner, err := r.client.Get(ctx, codeKeyPrefix+code).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("redis lookup code: %w", err)
	}
	return owner, nil
}
