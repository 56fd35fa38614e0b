package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Stream struct {
		Addr         string        `yaml:"addr"`
		Password     string        `yaml:"password"`
		DB           int           `yaml:"db"`
		PoolSize     int           `yaml:"pool_size"`
		Start        string        `yaml:"start"` // tail or earliest
		BlockTimeout time.Duration `yaml:"block_timeout"`
		BatchCount   int           `yaml:"batch_count"`
		IdleSleep    time.Duration `yaml:"idle_sleep"`
		ErrorBackoff time.Duration `yaml:"error_backoff"`
	} `yaml:"stream"`
	Gateway struct {
		Topics         []string      `yaml:"topics"`
		MaxConnections int           `yaml:"max_connections"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
	} `yaml:"gateway"`
	Agents struct {
		MarketID string `yaml:"market_id"`
		RiskID   string `yaml:"risk_id"`
	} `yaml:"agents"`
	Reputation struct {
		ApproveDelta float64 `yaml:"approve_delta"`
		RejectDelta  float64 `yaml:"reject_delta"`
	} `yaml:"reputation"`
	Ledger struct {
		Enabled      bool          `yaml:"enabled"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"ledger"`
	Execution struct {
		EffectLog string `yaml:"effect_log"`
	} `yaml:"execution"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Bridge       struct {
			Enabled bool   `yaml:"enabled"`
			Topic   string `yaml:"topic"`
		} `yaml:"bridge"`
		Export struct {
			Enabled bool   `yaml:"enabled"`
			Topic   string `yaml:"topic"`
		} `yaml:"export"`
		Producer struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Stream.Addr = v
	}
	if v := os.Getenv("STREAM_START"); v != "" {
		c.Stream.Start = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("GATEWAY_TOPICS"); v != "" {
		c.Gateway.Topics = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Stream.BlockTimeout <= 0 {
		c.Stream.BlockTimeout = 2 * time.Second
	}
	if c.Stream.BatchCount <= 0 {
		c.Stream.BatchCount = 10
	}
	if c.Stream.IdleSleep <= 0 {
		c.Stream.IdleSleep = 10 * time.Millisecond
	}
	if c.Stream.ErrorBackoff <= 0 {
		c.Stream.ErrorBackoff = time.Second
	}
	if c.Stream.Start == "" {
		c.Stream.Start = "tail"
	}
	if c.Gateway.MaxConnections <= 0 {
		c.Gateway.MaxConnections = 256
	}
	if c.Agents.MarketID == "" {
		c.Agents.MarketID = "agent.market.1"
	}
	if c.Agents.RiskID == "" {
		c.Agents.RiskID = "agent.risk.1"
	}
	if c.Reputation.ApproveDelta == 0 {
		c.Reputation.ApproveDelta = 1.0
	}
	if c.Reputation.RejectDelta == 0 {
		c.Reputation.RejectDelta = -0.25
	}
	if c.Ledger.BatchSize <= 0 {
		c.Ledger.BatchSize = 100
	}
	if c.Ledger.BatchTimeout <= 0 {
		c.Ledger.BatchTimeout = 2 * time.Second
	}
	if c.Execution.EffectLog == "" {
		c.Execution.EffectLog = "actions.log"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Stream.Addr == "" {
		return fmt.Errorf("stream.addr is required")
	}
	if c.Stream.Start != "tail" && c.Stream.Start != "earliest" {
		return fmt.Errorf("stream.start must be 'tail' or 'earliest', got '%s'", c.Stream.Start)
	}
	if len(c.Gateway.Topics) == 0 {
		return fmt.Errorf("gateway.topics cannot be empty")
	}
	if c.Kafka.Bridge.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when bridge is enabled")
	}
	if c.Kafka.Export.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when export is enabled")
	}
	return nil
}
