package stream

import "time"

// Cursor positions understood by the substrate.
const (
	// CursorTail starts at the stream tail: only entries appended after the
	// consumer starts are observed.
	CursorTail = "$"
	// CursorEarliest starts before the first retained entry.
	CursorEarliest = "0-0"
)

// Config holds Redis connection settings for the stream substrate.
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// Option configures the stream client.
type Option func(*Config)

// WithAddr sets the Redis address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithAuth sets password and logical DB.
func WithAuth(password string, db int) Option {
	return func(c *Config) {
		c.Password = password
		c.DB = db
	}
}

// WithPool sets connection pool sizing.
func WithPool(size, minIdle int) Option {
	return func(c *Config) {
		if size > 0 {
			c.PoolSize = size
		}
		if minIdle >= 0 {
			c.MinIdleConns = minIdle
		}
	}
}

// PollConfig holds the fixed poll window every consumer loop uses.
type PollConfig struct {
	Start        string        // CursorTail or CursorEarliest
	BlockTimeout time.Duration // max blocking wait per read
	BatchCount   int           // max entries per read
	IdleSleep    time.Duration // sleep when a read returns nothing
	ErrorBackoff time.Duration // fixed backoff after a transient error
}

func (p *PollConfig) applyDefaults() {
	if p.Start == "" {
		p.Start = CursorTail
	}
	if p.BlockTimeout <= 0 {
		p.BlockTimeout = 2 * time.Second
	}
	if p.BatchCount <= 0 {
		p.BatchCount = 10
	}
	if p.IdleSleep <= 0 {
		p.IdleSleep = 10 * time.Millisecond
	}
	if p.ErrorBackoff <= 0 {
		p.ErrorBackoff = time.Second
	}
}
