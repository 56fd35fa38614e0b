package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"GovPulse/internal/domain/models"
	pkgch "GovPulse/pkg/clickhouse"
	applogger "GovPulse/pkg/logger"
)

// CHLedger implements Ledger backed by ClickHouse. All writes are batched
// inserts inside a transaction; the stream remains the source of truth, so a
// failed batch is logged and dropped rather than retried.
type CHLedger struct {
	ch *pkgch.Client
	db *sql.DB
	l  *applogger.Logger
}

func NewCHLedger(ch *pkgch.Client) *CHLedger {
	return &CHLedger{ch: ch, db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHLedger) SetLogger(l *applogger.Logger) { s.l = l }

var ledgerSchema = []string{
	`CREATE DATABASE IF NOT EXISTS govpulse`,
	`CREATE TABLE IF NOT EXISTS govpulse.market_ticks (
        stream_id String,
        ts        DateTime64(3),
        symbol    LowCardinality(String),
        price     Float64,
        size      Float64,
        side      LowCardinality(String),
        source    LowCardinality(String)
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (symbol, ts)`,
	`CREATE TABLE IF NOT EXISTS govpulse.proposals (
        proposal_id String,
        agent_id    LowCardinality(String),
        ts          DateTime64(3),
        type        LowCardinality(String),
        priority    Int32,
        payload     String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (agent_id, ts)`,
	`CREATE TABLE IF NOT EXISTS govpulse.actions (
        action_id   String,
        proposal_id String,
        ts          DateTime64(3),
        status      LowCardinality(String),
        result      String,
        error       String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (status, ts)`,
	`CREATE TABLE IF NOT EXISTS govpulse.audit_events (
        event       LowCardinality(String),
        source      LowCardinality(String),
        severity    LowCardinality(String),
        ts          DateTime64(3),
        proposal_id String,
        action_id   String,
        body        String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (event, ts)`,
	`CREATE TABLE IF NOT EXISTS govpulse.votes (
        proposal_id String,
        agent_id    LowCardinality(String),
        vote        LowCardinality(String),
        weight      Float64,
        ts          DateTime64(3),
        reason      String
    ) ENGINE = MergeTree()
    PARTITION BY toYYYYMMDD(ts)
    ORDER BY (proposal_id, ts)`,
}

// Init ensures the database and tables exist (idempotent).
func (s *CHLedger) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, ledgerSchema)
}

func (s *CHLedger) StoreTicks(ctx context.Context, ticks []*models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	start := time.Now()
	err := s.batchInsert(ctx,
		`INSERT INTO govpulse.market_ticks (stream_id, ts, symbol, price, size, side, source)`,
		len(ticks),
		func(stmt *sql.Stmt, i int) error {
			t := ticks[i]
			_, err := stmt.ExecContext(ctx, t.StreamID, msToTime(t.Timestamp), t.Symbol, t.Price, t.Size, t.Side, t.Source)
			return err
		})
	if err != nil {
		return fmt.Errorf("store ticks: %w", err)
	}
	s.logBatch("ticks", len(ticks), start)
	return nil
}

func (s *CHLedger) StoreProposals(ctx context.Context, proposals []*models.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}
	start := time.Now()
	err := s.batchInsert(ctx,
		`INSERT INTO govpulse.proposals (proposal_id, agent_id, ts, type, priority, payload)`,
		len(proposals),
		func(stmt *sql.Stmt, i int) error {
			p := proposals[i]
			_, err := stmt.ExecContext(ctx, p.ProposalID, p.AgentID, msToTime(p.Timestamp), string(p.Type), int32(p.Priority), jsonOrEmpty(p.Payload))
			return err
		})
	if err != nil {
		return fmt.Errorf("store proposals: %w", err)
	}
	s.logBatch("proposals", len(proposals), start)
	return nil
}

func (s *CHLedger) StoreActions(ctx context.Context, actions []*models.Action) error {
	if len(actions) == 0 {
		return nil
	}
	start := time.Now()
	err := s.batchInsert(ctx,
		`INSERT INTO govpulse.actions (action_id, proposal_id, ts, status, result, error)`,
		len(actions),
		func(stmt *sql.Stmt, i int) error {
			a := actions[i]
			_, err := stmt.ExecContext(ctx, a.ActionID, a.ProposalID, msToTime(a.Timestamp), string(a.Status), jsonOrEmpty(a.Result), a.ErrorMessage)
			return err
		})
	if err != nil {
		return fmt.Errorf("store actions: %w", err)
	}
	s.logBatch("actions", len(actions), start)
	return nil
}

func (s *CHLedger) StoreAuditEvents(ctx context.Context, events []*models.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	start := time.Now()
	err := s.batchInsert(ctx,
		`INSERT INTO govpulse.audit_events (event, source, severity, ts, proposal_id, action_id, body)`,
		len(events),
		func(stmt *sql.Stmt, i int) error {
			e := events[i]
			var proposalID, actionID string
			if e.Proposal != nil {
				proposalID = e.Proposal.ProposalID
			}
			if e.Action != nil {
				actionID = e.Action.ActionID
			}
			body, _ := json.Marshal(e)
			_, err := stmt.ExecContext(ctx, e.Event, e.Source, e.Severity, msToTime(e.Timestamp), proposalID, actionID, string(body))
			return err
		})
	if err != nil {
		return fmt.Errorf("store audit events: %w", err)
	}
	s.logBatch("audit_events", len(events), start)
	return nil
}

func (s *CHLedger) StoreVotes(ctx context.Context, votes []*models.Vote) error {
	if len(votes) == 0 {
		return nil
	}
	start := time.Now()
	err := s.batchInsert(ctx,
		`INSERT INTO govpulse.votes (proposal_id, agent_id, vote, weight, ts, reason)`,
		len(votes),
		func(stmt *sql.Stmt, i int) error {
			v := votes[i]
			_, err := stmt.ExecContext(ctx, v.ProposalID, v.AgentID, v.Vote, v.Weight, msToTime(v.Timestamp), v.Reason)
			return err
		})
	if err != nil {
		return fmt.Errorf("store votes: %w", err)
	}
	s.logBatch("votes", len(votes), start)
	return nil
}

func (s *CHLedger) QueryTicks(ctx context.Context, symbol string, from, to time.Time, limit int) ([]*models.Tick, error) {
	q := `
        SELECT stream_id, ts, symbol, price, size, side, source
        FROM govpulse.market_ticks
        WHERE ts <= ?`
	args := []interface{}{to}
	if symbol != "" {
		q += ` AND symbol = ?`
		args = append(args, symbol)
	}
	if !from.IsZero() {
		q += ` AND ts >= ?`
		args = append(args, from)
	}
	q += `
        ORDER BY ts DESC
        LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse query_ticks error",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Tick, 0, limit)
	for rows.Next() {
		var (
			t  models.Tick
			ts time.Time
		)
		if err := rows.Scan(&t.StreamID, &ts, &t.Symbol, &t.Price, &t.Size, &t.Side, &t.Source); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		t.Timestamp = ts.UnixMilli()
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *CHLedger) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

func (s *CHLedger) Close() error {
	return s.ch.Close()
}

// batchInsert runs one prepared statement per row inside a transaction, the
// batching idiom of the clickhouse-go database/sql driver.
func (s *CHLedger) batchInsert(ctx context.Context, insert string, n int, bind func(stmt *sql.Stmt, i int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := bind(stmt, i); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("exec row %d: %w", i, err)
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("close stmt: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *CHLedger) logBatch(kind string, n int, start time.Time) {
	if s.l != nil {
		s.l.Debug("clickhouse batch stored",
			applogger.String("kind", kind),
			applogger.Int("rows", n),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
}

func msToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}

func jsonOrEmpty(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
