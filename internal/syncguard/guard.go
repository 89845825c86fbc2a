// Package syncguard provides an optional per-tenant "sync in progress"
// lock. Correctness never depends on it — the catalog upsert is idempotent —
// it only avoids wasted work when timer fires overlap.
package syncguard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Guard coordinates overlapping sync runs for the same tenant. A nil Guard
// (no redis configured) disables overlap protection.
type Guard struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Guard {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Guard{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    ttl,
	}
}

// TryAcquire claims the tenant's sync lock. ok is false when another run
// currently holds it. A nil guard always grants the claim.
func (g *Guard) TryAcquire(ctx context.Context, tenantID int64) (token string, ok bool, err error) {
	if g == nil || g.client == nil {
		return "", true, nil
	}

	token = uuid.NewString()
	ok, err = g.client.SetNX(ctx, lockKey(tenantID), token, g.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock if this run still owns it; expired or stolen
// locks are left alone.
func (g *Guard) Release(ctx context.Context, tenantID int64, token string) error {
	if g == nil || g.client == nil || token == "" {
		return nil
	}
	return g.script.Run(ctx, g.client, []string{lockKey(tenantID)}, token).Err()
}

func lockKey(tenantID int64) string {
	return fmt.Sprintf("catalogsync:run:%d", tenantID)
}

var ErrNotConfigured = errors.New("sync guard not configured")
