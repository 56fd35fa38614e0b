package repository

import (
	"context"
	"time"

	"GovPulse/internal/domain/models"
	"GovPulse/pkg/stream"
)

// Stream is the append-only log substrate consumed by every service.
// Implemented by pkg/stream.Client (Redis Streams) and pkg/stream.MemoryLog.
type Stream interface {
	Append(ctx context.Context, topic string, payload interface{}) (string, error)
	Read(ctx context.Context, topic, cursor string, block time.Duration, count int) ([]stream.Entry, error)
	Health(ctx context.Context) error
	Close() error
}

// Ledger is the durable archive of canonical pipeline records.
type Ledger interface {
	Init(ctx context.Context) error // ensure tables
	StoreTicks(ctx context.Context, ticks []*models.Tick) error
	StoreProposals(ctx context.Context, proposals []*models.Proposal) error
	StoreActions(ctx context.Context, actions []*models.Action) error
	StoreAuditEvents(ctx context.Context, events []*models.AuditEvent) error
	StoreVotes(ctx context.Context, votes []*models.Vote) error
	QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error)
	Health(ctx context.Context) error
	Close() error
}

// Reputation tracks per-agent standing adjusted by policy outcomes.
type Reputation interface {
	Adjust(ctx context.Context, agentID string, delta float64, approved bool) error
	Leaderboard(ctx context.Context, limit int) ([]*models.Reputation, error)
}

// IdempotencyGuard performs check-and-set on record ids so redelivered
// entries do not duplicate side effects.
type IdempotencyGuard interface {
	// FirstSeen returns true exactly once per (scope, id) pair.
	FirstSeen(ctx context.Context, scope, id string) (bool, error)
	// Release undoes a FirstSeen claim after a failed write so the entry can
	// be reprocessed on redelivery.
	Release(ctx context.Context, scope, id string) error
}

// EffectLog is the durable target the execution applier applies action
// effects to.
type EffectLog interface {
	Apply(ctx context.Context, a *models.Action) error
	Close() error
}

// Exporter forwards audit records to an external system (Kafka).
type Exporter interface {
	Export(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Metrics records pipeline observability signals.
type Metrics interface {
	RecordEntryConsumed(topic string)
	RecordProposal(agentID, proposalType string)
	RecordAction(status string)
	RecordBroadcast(topic string)
	RecordLiveConnections(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
