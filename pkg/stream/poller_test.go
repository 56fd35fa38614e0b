package stream

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"GovPulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func pollCfg() PollConfig {
	return PollConfig{
		Start:        CursorEarliest,
		BlockTimeout: 20 * time.Millisecond,
		BatchCount:   10,
		IdleSleep:    time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}
}

func TestPollerAdvancesCursor(t *testing.T) {
	m := NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < 3; i++ {
		if _, err := m.Append(ctx, "t", []byte(`{}`)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	var seen atomic.Int64
	p := NewPoller(m, "t", pollCfg(), testLogger(t))
	go func() {
		_ = p.Run(ctx, func(ctx context.Context, e Entry) error {
			if seen.Add(1) == 3 {
				cancel()
			}
			return nil
		})
	}()

	waitFor(t, func() bool { return seen.Load() == 3 })
	if p.Cursor() == CursorEarliest {
		t.Fatalf("cursor did not advance")
	}
}

func TestPollerRedeliversOnHandlerError(t *testing.T) {
	m := NewMemoryLog()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := m.Append(ctx, "t", []byte(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}

	var attempts atomic.Int64
	p := NewPoller(m, "t", pollCfg(), testLogger(t))
	go func() {
		_ = p.Run(ctx, func(ctx context.Context, e Entry) error {
			if attempts.Add(1) < 3 {
				return errors.New("transient")
			}
			cancel()
			return nil
		})
	}()

	// The same entry must be redelivered until the handler succeeds.
	waitFor(t, func() bool { return attempts.Load() >= 3 })
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
