package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// Archiver mirrors every pipeline topic into the durable ledger, batching
// rows per entity kind, and optionally exports audit events to Kafka. One
// poller per topic keeps cursors independent; a failing topic never stalls
// the others. Archival is best effort: a decode failure or a full flush
// error is logged and the cursor still advances, since the stream substrate
// remains the source of truth.
type Archiver struct {
	stream   domrepo.Stream
	ledger   domrepo.Ledger
	exporter domrepo.Exporter // may be nil
	poll     stream.PollConfig
	batch    int
	flushGap time.Duration
	metrics  domrepo.Metrics
	log      *logger.Logger

	mu        sync.Mutex
	ticks     []*models.Tick
	proposals []*models.Proposal
	actions   []*models.Action
	events    []*models.AuditEvent
	votes     []*models.Vote
}

// NewArchiver creates an archiver. exporter may be nil to disable Kafka
// export.
func NewArchiver(
	st domrepo.Stream,
	ledger domrepo.Ledger,
	exporter domrepo.Exporter,
	poll stream.PollConfig,
	batchSize int,
	flushGap time.Duration,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Archiver {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushGap <= 0 {
		flushGap = 2 * time.Second
	}
	return &Archiver{
		stream:   st,
		ledger:   ledger,
		exporter: exporter,
		poll:     poll,
		batch:    batchSize,
		flushGap: flushGap,
		metrics:  metrics,
		log:      log.With("archiver"),
	}
}

// Run blocks until ctx is cancelled, then flushes what it can.
func (ar *Archiver) Run(ctx context.Context) error {
	ar.log.Info("archiver started", logger.Int("batch_size", ar.batch))

	var wg sync.WaitGroup
	for _, topic := range models.DefaultTopics() {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			p := stream.NewPoller(ar.stream, topic, ar.poll, ar.log)
			_ = p.Run(ctx, func(ctx context.Context, e stream.Entry) error {
				ar.ingest(ctx, topic, e)
				return nil
			})
		}(topic)
	}

	ticker := time.NewTicker(ar.flushGap)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			// Final best-effort flush with a fresh context.
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			ar.flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			ar.flush(ctx)
		}
	}
}

// ingest decodes one entry into its per-topic buffer.
func (ar *Archiver) ingest(ctx context.Context, topic string, e stream.Entry) {
	ar.metrics.RecordEntryConsumed(topic)

	var decodeErr error
	full := false

	ar.mu.Lock()
	switch topic {
	case models.TopicTicks:
		var t models.Tick
		if decodeErr = json.Unmarshal(e.Data, &t); decodeErr == nil {
			ar.ticks = append(ar.ticks, &t)
			full = len(ar.ticks) >= ar.batch
		}
	case models.TopicProposals:
		var p models.Proposal
		if decodeErr = json.Unmarshal(e.Data, &p); decodeErr == nil {
			ar.proposals = append(ar.proposals, &p)
			full = len(ar.proposals) >= ar.batch
		}
	case models.TopicActions:
		var a models.Action
		if decodeErr = json.Unmarshal(e.Data, &a); decodeErr == nil {
			ar.actions = append(ar.actions, &a)
			full = len(ar.actions) >= ar.batch
		}
	case models.TopicAudit:
		var ev models.AuditEvent
		if decodeErr = json.Unmarshal(e.Data, &ev); decodeErr == nil {
			ar.events = append(ar.events, &ev)
			full = len(ar.events) >= ar.batch
		}
	case models.TopicVotes:
		var v models.Vote
		if decodeErr = json.Unmarshal(e.Data, &v); decodeErr == nil {
			ar.votes = append(ar.votes, &v)
			full = len(ar.votes) >= ar.batch
		}
	}
	ar.mu.Unlock()

	if decodeErr != nil {
		ar.metrics.RecordError("archive_decode")
		ar.log.Warn("bad payload, not archived",
			logger.String("topic", topic),
			logger.String("entry_id", e.ID),
			logger.Error(decodeErr))
		return
	}

	if topic == models.TopicAudit && ar.exporter != nil {
		if err := ar.exporter.Export(ctx, e.ID, e.Data); err != nil {
			ar.metrics.RecordError("audit_export")
			ar.log.Warn("audit export failed", logger.Error(err))
		}
	}

	if full {
		ar.flush(ctx)
	}
}

// flush drains all buffers into the ledger.
func (ar *Archiver) flush(ctx context.Context) {
	ar.mu.Lock()
	ticks, proposals, actions := ar.ticks, ar.proposals, ar.actions
	events, votes := ar.events, ar.votes
	ar.ticks, ar.proposals, ar.actions, ar.events, ar.votes = nil, nil, nil, nil, nil
	ar.mu.Unlock()

	start := time.Now()
	if len(ticks) > 0 {
		ar.store(ar.ledger.StoreTicks(ctx, ticks), "ticks", len(ticks))
	}
	if len(proposals) > 0 {
		ar.store(ar.ledger.StoreProposals(ctx, proposals), "proposals", len(proposals))
	}
	if len(actions) > 0 {
		ar.store(ar.ledger.StoreActions(ctx, actions), "actions", len(actions))
	}
	if len(events) > 0 {
		ar.store(ar.ledger.StoreAuditEvents(ctx, events), "audit_events", len(events))
	}
	if len(votes) > 0 {
		ar.store(ar.ledger.StoreVotes(ctx, votes), "votes", len(votes))
	}
	if n := len(ticks) + len(proposals) + len(actions) + len(events) + len(votes); n > 0 {
		ar.metrics.RecordLatency("ledger_flush", time.Since(start).Seconds())
	}
}

func (ar *Archiver) store(err error, kind string, n int) {
	if err != nil {
		ar.metrics.RecordError("ledger_" + kind)
		ar.log.Error("ledger store failed, rows dropped",
			logger.String("kind", kind),
			logger.Int("rows", n),
			logger.Error(err))
		return
	}
	ar.log.Debug("ledger flush", logger.String("kind", kind), logger.Int("rows", n))
}
