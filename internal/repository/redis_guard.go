package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const guardTTL = 24 * time.Hour

// RedisGuard implements the idempotency check-and-set with SETNX. Claims
// expire after guardTTL: by then the cursor has long moved past the entry,
// so a stale claim only wastes a key.
type RedisGuard struct {
	cli *redis.Client
}

func NewRedisGuard(cli *redis.Client) *RedisGuard {
	return &RedisGuard{cli: cli}
}

func (g *RedisGuard) FirstSeen(ctx context.Context, scope, id string) (bool, error) {
	ok, err := g.cli.SetNX(ctx, guardKey(scope, id), 1, guardTTL).Result()
	if err != nil {
		return false, fmt.Errorf("guard claim %s/%s: %w", scope, id, err)
	}
	return ok, nil
}

func (g *RedisGuard) Release(ctx context.Context, scope, id string) error {
	if err := g.cli.Del(ctx, guardKey(scope, id)).Err(); err != nil {
		return fmt.Errorf("guard release %s/%s: %w", scope, id, err)
	}
	return nil
}

func guardKey(scope, id string) string {
	return "govpulse:seen:" + scope + ":" + id
}
