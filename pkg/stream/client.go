package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// payloadField is the single stream field carrying the JSON payload bytes.
const payloadField = "data"

// Entry is one record read from a topic: its monotonic entry id plus the
// verbatim payload bytes.
type Entry struct {
	ID   string
	Data []byte
}

// Client wraps Redis Streams as the pipeline's append-only log substrate.
// Entry ids within one topic are strictly increasing; cross-topic ordering
// is not guaranteed. Delivery to consumers is at-least-once.
type Client struct {
	rdb *redis.Client
}

// NewClient creates a stream client and verifies connectivity.
func NewClient(opts ...Option) (*Client, error) {
	cfg := &Config{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("stream ping: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewClientFromRedis wraps an existing Redis client (used by tests and DI).
func NewClientFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Append marshals payload and appends it to topic, returning the new entry id.
func (c *Client) Append(ctx context.Context, topic string, payload interface{}) (string, error) {
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

	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{payloadField: b},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", topic, err)
	}
	return id, nil
}

// Read blocks up to block for entries after cursor, returning at most count.
// An empty slice and nil error means nothing arrived within the window.
func (c *Client) Read(ctx context.Context, topic, cursor string, block time.Duration, count int) ([]Entry, error) {
	res, err := c.rdb.XRead(ctx, &redis.XReadArgs{
		Streams: []string{topic, cursor},
		Block:   block,
		Count:   int64(count),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", topic, err)
	}

	var entries []Entry
	for _, st := range res {
		for _, msg := range st.Messages {
			entries = append(entries, Entry{ID: msg.ID, Data: extractPayload(msg.Values)})
		}
	}
	return entries, nil
}

// extractPayload pulls the payload field out of a stream entry. Entries
// written by other producers without the payload field are re-encoded
// verbatim so subscribers still see something well-formed.
func extractPayload(values map[string]interface{}) []byte {
	if v, ok := values[payloadField]; ok {
		switch raw := v.(type) {
		case string:
			return []byte(raw)
		case []byte:
			return raw
		}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return nil
	}
	return b
}

// Redis returns the underlying client for components that share the
// connection (idempotency guard, reputation store).
func (c *Client) Redis() *redis.Client {
	return c.rdb
}

// Health pings the substrate.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
