package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryLog is an in-process substrate with the same contract as the Redis
// client: per-topic strictly increasing entry ids, blocking reads from a
// cursor, tail semantics for fresh consumers. Used for local development
// and tests.
type MemoryLog struct {
	mu      sync.Mutex
	topics  map[string][]Entry
	seq     int64
	changed chan struct{}
}

// NewMemoryLog creates an empty in-memory log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		topics:  make(map[string][]Entry),
		changed: make(chan struct{}),
	}
}

// Append marshals payload and appends it to topic, returning the entry id.
func (m *MemoryLog) Append(ctx context.Context, topic string, payload interface{}) (string, error) {
	var b []byte
	switch v := payload.(type) {
	case []byte:
		b = v
	case json.RawMessage:
		b = v
	default:
		var err error
		b, err = json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal payload: %w", err)
		}
	}

	m.mu.Lock()
	m.seq++
	id := fmt.Sprintf("%d-0", m.seq)
	m.topics[topic] = append(m.topics[topic], Entry{ID: id, Data: b})
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()

	return id, nil
}

// Read blocks up to block for entries after cursor, returning at most count.
func (m *MemoryLog) Read(ctx context.Context, topic, cursor string, block time.Duration, count int) ([]Entry, error) {
	deadline := time.Now().Add(block)

	m.mu.Lock()
	after := m.resolveLocked(cursor)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		entries := m.entriesAfterLocked(topic, after, count)
		changed := m.changed
		m.mu.Unlock()

		if len(entries) > 0 {
			return entries, nil
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, nil
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
			return nil, nil
		case <-changed:
			t.Stop()
		}
	}
}

// resolveLocked maps symbolic cursors to a numeric position.
func (m *MemoryLog) resolveLocked(cursor string) int64 {
	switch cursor {
	case CursorTail:
		return m.seq
	case CursorEarliest:
		return 0
	}
	return parseID(cursor)
}

func (m *MemoryLog) entriesAfterLocked(topic string, after int64, count int) []Entry {
	var out []Entry
	for _, e := range m.topics[topic] {
		if parseID(e.ID) <= after {
			continue
		}
		out = append(out, e)
		if count > 0 && len(out) >= count {
			break
		}
	}
	return out
}

func parseID(id string) int64 {
	s, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Len reports how many entries a topic holds (test helper).
func (m *MemoryLog) Len(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[topic])
}

// Health always succeeds for the in-memory log.
func (m *MemoryLog) Health(ctx context.Context) error { return nil }

// Close is a no-op for the in-memory log.
func (m *MemoryLog) Close() error { return nil }
