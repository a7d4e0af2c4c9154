package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/troopledger/ledger-service/internal/domain"
)

var throttleScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// ErrThrottled is returned when a caller repeats a notifying request too often.
var ErrThrottled = fmt.Errorf("%w: too many requests, try again later", domain.ErrConflict)

// RequestThrottle counts requests per scope and subject in a fixed window.
type RequestThrottle interface {
	Consume(ctx context.Context, scope, subject string, window time.Duration) (count int, retryAfterSeconds int, err error)
}

// RedisRequestThrottle implements RequestThrottle with a Redis INCR counter per window.
type RedisRequestThrottle struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRequestThrottle(client redis.UniversalClient, prefix string) *RedisRequestThrottle {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "troopledger:throttle"
	}
	return &RedisRequestThrottle{
		client: client,
		prefix: strings.TrimSuffix(trimmedPrefix, ":"),
	}
}

func (r *RedisRequestThrottle) Consume(ctx context.Context, scope, subject string, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil || window <= 0 {
		return 0, 0, nil
	}
	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}
	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	raw, err := throttleScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to consume throttle: %w", err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis throttle response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis throttle count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}
	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(count), retryAfter, nil
}

// ThrottleError tells the caller when the window resets.
type ThrottleError struct {
	RetryAfterSeconds int
}

func (e *ThrottleError) Error() string {
	return fmt.Sprintf("%v (retry in %ds)", ErrThrottled, e.RetryAfterSeconds)
}

func (e *ThrottleError) Unwrap() error { return ErrThrottled }
