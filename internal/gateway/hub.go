package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	"GovPulse/pkg/logger"
	"GovPulse/pkg/stream"
)

// ErrHubFull is returned by Subscribe once the registry is at capacity.
var ErrHubFull = errors.New("gateway: subscriber limit reached")

// Conn is the transport side of one live subscriber. Implementations must
// be safe for the hub to call from its broadcast goroutines.
type Conn interface {
	WriteMessage(data []byte) error
	Close() error
}

// LiveConnection is one registered subscriber.
type LiveConnection struct {
	conn Conn
}

// Hub multiplexes N topics into a live broadcast to M subscribers. Each
// topic keeps an independent cursor; a newly subscribed connection sees
// only entries read after it registered (no backlog replay). The registry
// is bounded: Subscribe rejects past the configured capacity.
type Hub struct {
	stream  domrepo.Stream
	topics  []string
	poll    stream.PollConfig
	maxConn int
	metrics domrepo.Metrics
	log     *logger.Logger

	mu    sync.Mutex
	conns map[*LiveConnection]struct{}
}

// NewHub creates a hub relaying the given topics.
func NewHub(st domrepo.Stream, topics []string, poll stream.PollConfig, maxConn int, metrics domrepo.Metrics, log *logger.Logger) *Hub {
	if maxConn <= 0 {
		maxConn = 256
	}
	return &Hub{
		stream:  st,
		topics:  topics,
		poll:    poll,
		maxConn: maxConn,
		metrics: metrics,
		log:     log.With("gateway"),
		conns:   make(map[*LiveConnection]struct{}),
	}
}

// Subscribe registers a connection. The caller owns closing the transport
// after Unsubscribe, except on send failure where the hub closes it.
func (h *Hub) Subscribe(c Conn) (*LiveConnection, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.conns) >= h.maxConn {
		return nil, ErrHubFull
	}
	lc := &LiveConnection{conn: c}
	h.conns[lc] = struct{}{}
	h.metrics.RecordLiveConnections(len(h.conns))
	h.log.Info("subscriber connected", logger.Int("live", len(h.conns)))
	return lc, nil
}

// Unsubscribe removes a connection. Idempotent.
func (h *Hub) Unsubscribe(lc *LiveConnection) {
	if lc == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.conns[lc]
	delete(h.conns, lc)
	n := len(h.conns)
	h.mu.Unlock()
	if ok {
		h.metrics.RecordLiveConnections(n)
		h.log.Info("subscriber removed", logger.Int("live", n))
	}
}

// Count returns the number of live subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Run reads every configured topic and rebroadcasts each entry until ctx is
// cancelled. Topics run independently: a failing topic backs off on its own
// while the rest keep flowing.
func (h *Hub) Run(ctx context.Context) error {
	h.log.Info("fan-out gateway started", logger.Strings("topics", h.topics))

	var wg sync.WaitGroup
	for _, topic := range h.topics {
		wg.Add(1)
		go func(topic string) {
			defer wg.Done()
			p := stream.NewPoller(h.stream, topic, h.poll, h.log)
			_ = p.Run(ctx, func(ctx context.Context, e stream.Entry) error {
				h.broadcast(topic, e)
				return nil
			})
		}(topic)
	}
	wg.Wait()
	return ctx.Err()
}

// broadcast delivers one entry to every currently-registered connection.
// The connection set is snapshotted before iterating, so subscribes and
// unsubscribes during the pass cannot corrupt it; failed connections are
// removed only after the pass completes.
func (h *Hub) broadcast(topic string, e stream.Entry) {
	env := models.Envelope{Stream: topic, ID: e.ID, Data: e.Data}
	payload, err := json.Marshal(env)
	if err != nil {
		h.metrics.RecordError("envelope_marshal")
		return
	}

	h.mu.Lock()
	snapshot := make([]*LiveConnection, 0, len(h.conns))
	for lc := range h.conns {
		snapshot = append(snapshot, lc)
	}
	h.mu.Unlock()

	var failed []*LiveConnection
	for _, lc := range snapshot {
		if err := lc.conn.WriteMessage(payload); err != nil {
			// Subscribers never see errors: the connection is just dropped.
			failed = append(failed, lc)
		}
	}

	for _, lc := range failed {
		h.Unsubscribe(lc)
		_ = lc.conn.Close()
		h.metrics.RecordError("broadcast_send")
	}

	h.metrics.RecordBroadcast(topic)
}
