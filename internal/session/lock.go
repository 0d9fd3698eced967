package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockBusy is returned when another turn holds the identity's lock past
// the acquisition budget.
var ErrLockBusy = fmt.Errorf("session: turn lock busy")

// TurnLock serializes message processing per identity so two concurrent
// deliveries cannot interleave reads and writes of the same session.
type TurnLock struct {
	client *redis.Client

	ttl    time.Duration
	retry  time.Duration
	budget time.Duration
}

// NewTurnLock creates a redis-backed per-identity lock. ttl bounds how long a
// crashed turn can hold the lock; retry and budget control acquisition.
func NewTurnLock(client *redis.Client, ttl, retry, budget time.Duration) *TurnLock {
	if client == nil {
		panic("session: redis client required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	if budget <= 0 {
		budget = 2 * time.Second
	}
	return &TurnLock{client: client, ttl: ttl, retry: retry, budget: budget}
}

func lockKey(identity string) string {
	return "turnlock:" + identity
}

// Acquire takes the identity's lock, retrying until the budget is spent.
// The returned token must be passed back to Release.
func (l *TurnLock) Acquire(ctx context.Context, identity string) (string, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.budget)

	for {
		ok, err := l.client.SetNX(ctx, lockKey(identity), token, l.ttl).Result()
		if err != nil {
			return "", fmt.Errorf("session: acquire lock: %w", err)
		}
		if ok {
			return token, nil
		}
		if time.Now().After(deadline) {
			return "", ErrLockBusy
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// releaseScript deletes the lock only when the caller still owns it, so a
// turn that outlived its TTL cannot free a lock someone else re-acquired.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release frees the identity's lock if the token still owns it.
func (l *TurnLock) Release(ctx context.Context, identity, token string) error {
	if err := releaseScript.Run(ctx, l.client, []string{lockKey(identity)}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("session: release lock: %w", err)
	}
	return nil
}
