package repository

import (
	"context"
	"fmt"
	"strconv"

	"GovPulse/internal/domain/models"

	"github.com/redis/go-redis/v9"
)

const (
	reputationScoresKey  = "govpulse:reputation:scores"
	reputationStatsKeyFn = "govpulse:reputation:stats:%s"
)

// RedisReputation keeps agent standing in Redis: a sorted set for scores so
// the leaderboard is a single ZREVRANGE, plus a per-agent hash with
// approved/rejected counters.
type RedisReputation struct {
	cli *redis.Client
}

func NewRedisReputation(cli *redis.Client) *RedisReputation {
	return &RedisReputation{cli: cli}
}

func (r *RedisReputation) Adjust(ctx context.Context, agentID string, delta float64, approved bool) error {
	field := "rejected"
	if approved {
		field = "approved"
	}
	pipe := r.cli.TxPipeline()
	pipe.ZIncrBy(ctx, reputationScoresKey, delta, agentID)
	pipe.HIncrBy(ctx, fmt.Sprintf(reputationStatsKeyFn, agentID), field, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reputation adjust %s: %w", agentID, err)
	}
	return nil
}

func (r *RedisReputation) Leaderboard(ctx context.Context, limit int) ([]*models.Reputation, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := r.cli.ZRevRangeWithScores(ctx, reputationScoresKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("reputation leaderboard: %w", err)
	}

	out := make([]*models.Reputation, 0, len(members))
	for _, m := range members {
		agentID, ok := m.Member.(string)
		if !ok {
			continue
		}
		rep := &models.Reputation{AgentID: agentID, Score: m.Score}
		stats, err := r.cli.HGetAll(ctx, fmt.Sprintf(reputationStatsKeyFn, agentID)).Result()
		if err == nil {
			rep.Approved = parseCount(stats["approved"])
			rep.Rejected = parseCount(stats["rejected"])
		}
		out = append(out, rep)
	}
	return out, nil
}

func parseCount(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
