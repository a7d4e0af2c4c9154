package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/troopledger/ledger-service/internal/domain"
)

// releaseLockScript deletes the key only while it still holds our token, so a lock that
// expired and was taken by another instance is left alone.
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrOperationInProgress is returned when another instance holds the operation lock.
var ErrOperationInProgress = fmt.Errorf("%w: another operation on this record is in progress", domain.ErrConflict)

// RedisOperationLocker implements distributed operation locks using Redis SET NX PX.
type RedisOperationLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisOperationLocker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisOperationLocker {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "troopledger:lock"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")
	if ttl < time.Second {
		ttl = time.Minute
	}

	return &RedisOperationLocker{
		client: client,
		prefix: trimmedPrefix,
		ttl:    ttl,
	}
}

// Acquire takes the lock or fails immediately with ErrOperationInProgress.
func (r *RedisOperationLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if r == nil || r.client == nil {
		return func() {}, nil
	}
	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return func() {}, nil
	}

	fullKey := fmt.Sprintf("%s:%s", r.prefix, normalizedKey)
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire operation lock: %w", err)
	}
	if !ok {
		return nil, ErrOperationInProgress
	}

	return func() {
		// The caller's context may already be cancelled; release on a short fresh one.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseLockScript.Run(releaseCtx, r.client, []string{fullKey}, token).Err()
	}, nil
}

// noopLocker is used when Redis is not configured.
type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

func campoutLockKey(campoutID uuid.UUID) string   { return "campout:" + campoutID.String() }
func campaignLockKey(campaignID uuid.UUID) string { return "campaign:" + campaignID.String() }
