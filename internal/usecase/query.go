package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/internal/service/cache"
	"GovPulse/pkg/logger"
)

const leaderboardTTL = 5 * time.Second

// ReadModel serves the HTTP read surface: reputation leaderboard, recent
// ticks from the ledger, and dependency health. Queries never touch the
// pipeline; they read the side stores the pipeline maintains.
type ReadModel struct {
	stream     domrepo.Stream
	ledger     domrepo.Ledger
	reputation domrepo.Reputation
	cache      cache.BytesCache
	log        *logger.Logger
}

func NewReadModel(st domrepo.Stream, ledger domrepo.Ledger, rep domrepo.Reputation, c cache.BytesCache, log *logger.Logger) *ReadModel {
	return &ReadModel{stream: st, ledger: ledger, reputation: rep, cache: c, log: log.With("readmodel")}
}

// Leaderboard returns the top agents by reputation score, cached briefly so
// dashboard polling does not hammer the store.
func (r *ReadModel) Leaderboard(ctx context.Context, limit int) ([]*models.Reputation, error) {
	key := fmt.Sprintf("leaderboard:%d", limit)
	if r.cache != nil {
		if b, ok, err := r.cache.GetBytes(key); err == nil && ok {
			var rows []*models.Reputation
			if json.Unmarshal(b, &rows) == nil {
				return rows, nil
			}
		}
	}

	rows, err := r.reputation.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard query: %w", err)
	}

	if r.cache != nil {
		if b, err := json.Marshal(rows); err == nil {
			_ = r.cache.SetBytes(key, b, leaderboardTTL)
		}
	}
	return rows, nil
}

// RecentTicks reads archived ticks from the ledger. A zero since means no
// lower bound.
func (r *ReadModel) RecentTicks(ctx context.Context, symbol string, limit int, since time.Time) ([]*models.Tick, error) {
	if r.ledger == nil {
		return nil, fmt.Errorf("tick ledger not configured")
	}
	rows, err := r.ledger.QueryTicks(ctx, symbol, since, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("ticks query: %w", err)
	}
	return rows, nil
}

// Health pings every wired dependency and reports per-component status.
func (r *ReadModel) Health(ctx context.Context) *models.HealthResponse {
	res := &models.HealthResponse{Status: "ok", Components: map[string]string{}}

	if err := r.stream.Health(ctx); err != nil {
		res.Status = "degraded"
		res.Components["stream"] = err.Error()
	} else {
		res.Components["stream"] = "ok"
	}

	if r.ledger != nil {
		if err := r.ledger.Health(ctx); err != nil {
			res.Status = "degraded"
			res.Components["ledger"] = err.Error()
		} else {
			res.Components["ledger"] = "ok"
		}
	}
	return res
}
