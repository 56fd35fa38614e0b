package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"GovPulse/internal/domain/models"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failWith error
	closed   bool
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.messages = append(c.messages, cp)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *fakeConn) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failWith = errors.New("send failed")
}

type nopMetrics struct{}

func (nopMetrics) RecordEntryConsumed(string)    {}
func (nopMetrics) RecordProposal(string, string) {}
func (nopMetrics) RecordAction(string)           {}
func (nopMetrics) RecordBroadcast(string)        {}
func (nopMetrics) RecordLiveConnections(int)     {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func fastPoll() stream.PollConfig {
	return stream.PollConfig{
		Start:        stream.CursorEarliest,
		BlockTimeout: 20 * time.Millisecond,
		BatchCount:   10,
		IdleSleep:    time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestBroadcastReachesAllSubscribers(t *testing.T) {
	log := stream.NewMemoryLog()
	hub := NewHub(log, []string{models.TopicTicks}, fastPoll(), 10, nopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	conns := make([]*fakeConn, 3)
	for i := range conns {
		conns[i] = &fakeConn{}
		_, err := hub.Subscribe(conns[i])
		require.NoError(t, err)
	}

	id, err := log.Append(ctx, models.TopicTicks, []byte(`{"symbol":"X","price":1}`))
	require.NoError(t, err)

	for _, c := range conns {
		c := c
		waitUntil(t, func() bool { return c.count() == 1 })
	}

	var env models.Envelope
	require.NoError(t, json.Unmarshal(conns[0].messages[0], &env))
	assert.Equal(t, models.TopicTicks, env.Stream)
	assert.Equal(t, id, env.ID)
	assert.JSONEq(t, `{"symbol":"X","price":1}`, string(env.Data))
}

func TestFailedSubscriberDroppedOthersKeepFlowing(t *testing.T) {
	log := stream.NewMemoryLog()
	hub := NewHub(log, []string{models.TopicTicks}, fastPoll(), 10, nopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.Run(ctx) }()

	c1, c2, c3 := &fakeConn{}, &fakeConn{}, &fakeConn{}
	for _, c := range []*fakeConn{c1, c2, c3} {
		_, err := hub.Subscribe(c)
		require.NoError(t, err)
	}

	_, err := log.Append(ctx, models.TopicTicks, []byte(`{"n":1}`))
	require.NoError(t, err)
	for _, c := range []*fakeConn{c1, c2, c3} {
		c := c
		waitUntil(t, func() bool { return c.count() == 1 })
	}

	// Connection #2 starts failing before the next entry.
	c2.fail()
	_, err = log.Append(ctx, models.TopicTicks, []byte(`{"n":2}`))
	require.NoError(t, err)

	waitUntil(t, func() bool { return c1.count() == 2 && c3.count() == 2 })
	waitUntil(t, func() bool { return hub.Count() == 2 })
	assert.Equal(t, 1, c2.count())
	assert.True(t, func() bool { c2.mu.Lock(); defer c2.mu.Unlock(); return c2.closed }())
}

func TestSubscribeRejectsPastCapacity(t *testing.T) {
	log := stream.NewMemoryLog()
	hub := NewHub(log, []string{models.TopicTicks}, fastPoll(), 2, nopMetrics{}, testLogger(t))

	_, err := hub.Subscribe(&fakeConn{})
	require.NoError(t, err)
	_, err = hub.Subscribe(&fakeConn{})
	require.NoError(t, err)
	_, err = hub.Subscribe(&fakeConn{})
	require.ErrorIs(t, err, ErrHubFull)
}

func TestUnsubscribeIdempotent(t *testing.T) {
	log := stream.NewMemoryLog()
	hub := NewHub(log, []string{models.TopicTicks}, fastPoll(), 10, nopMetrics{}, testLogger(t))

	lc, err := hub.Subscribe(&fakeConn{})
	require.NoError(t, err)
	hub.Unsubscribe(lc)
	hub.Unsubscribe(lc)
	hub.Unsubscribe(nil)
	assert.Equal(t, 0, hub.Count())
}

func TestNewSubscriberSeesOnlyFutureEntries(t *testing.T) {
	log := stream.NewMemoryLog()
	// Tail start mirrors production: the hub itself begins at the tail.
	cfg := fastPoll()
	cfg.Start = stream.CursorTail
	hub := NewHub(log, []string{models.TopicTicks}, cfg, 10, nopMetrics{}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backlog exists before the hub starts.
	_, err := log.Append(ctx, models.TopicTicks, []byte(`{"n":0}`))
	require.NoError(t, err)

	go func() { _ = hub.Run(ctx) }()
	time.Sleep(30 * time.Millisecond) // let the poller pass the backlog

	c := &fakeConn{}
	_, err = hub.Subscribe(c)
	require.NoError(t, err)

	_, err = log.Append(ctx, models.TopicTicks, []byte(`{"n":1}`))
	require.NoError(t, err)

	waitUntil(t, func() bool { return c.count() == 1 })
	var env models.Envelope
	require.NoError(t, json.Unmarshal(c.messages[0], &env))
	assert.JSONEq(t, `{"n":1}`, string(env.Data))
}
