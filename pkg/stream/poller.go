package stream

import (
	"context"
	"time"

	"GovPulse/pkg/logger"
)

// Reader is the read side of the substrate, satisfied by *Client and by
// in-memory fakes in tests.
type Reader interface {
	Read(ctx context.Context, topic, cursor string, block time.Duration, count int) ([]Entry, error)
}

// Handler processes one entry. Returning an error leaves the cursor at the
// previous position, so the entry is redelivered on the next pass
// (at-least-once). Handlers must treat decode errors as skip-and-advance by
// returning nil.
type Handler func(ctx context.Context, e Entry) error

// Poller owns one consumer's cursor on one topic and drives the blocking
// read loop. The cursor lives in memory and is advanced only after the
// handler returns nil for an entry.
type Poller struct {
	reader Reader
	topic  string
	cfg    PollConfig
	log    *logger.Logger

	cursor string
}

// NewPoller creates a poller starting at cfg.Start.
func NewPoller(reader Reader, topic string, cfg PollConfig, log *logger.Logger) *Poller {
	cfg.applyDefaults()
	return &Poller{
		reader: reader,
		topic:  topic,
		cfg:    cfg,
		log:    log,
		cursor: cfg.Start,
	}
}

// Cursor returns the current read position (last fully-processed entry id).
func (p *Poller) Cursor() string {
	return p.cursor
}

// Run blocks, reading entries and invoking handle until ctx is cancelled.
// Transient read errors are logged and followed by a fixed backoff from the
// unchanged cursor.
func (p *Poller) Run(ctx context.Context, handle Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries, err := p.reader.Read(ctx, p.topic, p.cursor, p.cfg.BlockTimeout, p.cfg.BatchCount)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.Warn("stream read failed",
				logger.String("topic", p.topic),
				logger.Error(err))
			if !sleep(ctx, p.cfg.ErrorBackoff) {
				return ctx.Err()
			}
			continue
		}

		if len(entries) == 0 {
			if !sleep(ctx, p.cfg.IdleSleep) {
				return ctx.Err()
			}
			continue
		}

		for _, e := range entries {
			if err := handle(ctx, e); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Cursor stays put: the entry is redelivered after backoff.
				p.log.Warn("entry processing failed, will redeliver",
					logger.String("topic", p.topic),
					logger.String("entry_id", e.ID),
					logger.Error(err))
				if !sleep(ctx, p.cfg.ErrorBackoff) {
					return ctx.Err()
				}
				break
			}
			p.cursor = e.ID
		}
	}
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
