package usecase

import (
	"context"
	"encoding/json"
	"time"

	"GovPulse/internal/domain/models"
	domrepo "GovPulse/internal/domain/repository"
	pkgkafka "GovPulse/pkg/kafka"

	"github.com/google/uuid"
)

// KafkaTickBridge consumes ticks from an external Kafka topic and appends
// them to the tick stream, letting deployments feed the pipeline from an
// existing Kafka market-data feed instead of the replay driver.
type KafkaTickBridge struct {
	topic   string
	stream  domrepo.Stream
	metrics domrepo.Metrics
}

func NewKafkaTickBridge(topic string, st domrepo.Stream, metrics domrepo.Metrics) *KafkaTickBridge {
	return &KafkaTickBridge{topic: topic, stream: st, metrics: metrics}
}

func (b *KafkaTickBridge) Topic() string { return b.topic }

// incoming message schema: {symbol, timestamp (ms or s), price, size, side}
func (b *KafkaTickBridge) Handle(ctx context.Context, raw []byte) error {
	var m struct {
		Symbol    string  `json:"symbol"`
		Timestamp int64   `json:"timestamp"`
		Price     float64 `json:"price"`
		Size      float64 `json:"size"`
		Side      string  `json:"side"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		b.metrics.RecordError("bridge_unmarshal")
		return err
	}
	if m.Timestamp < 1e11 { // seconds
		m.Timestamp *= 1000
	}
	if m.Side == "" {
		m.Side = "unknown"
	}

	tick := &models.Tick{
		StreamID:  uuid.NewString(),
		Timestamp: m.Timestamp,
		Symbol:    m.Symbol,
		Price:     m.Price,
		Size:      m.Size,
		Side:      m.Side,
		Source:    "kafka",
	}
	if err := tick.Validate(); err != nil {
		b.metrics.RecordError("bridge_invalid")
		return err
	}

	start := time.Now()
	if _, err := b.stream.Append(ctx, models.TopicTicks, tick); err != nil {
		b.metrics.RecordError("bridge_append")
		return err
	}
	b.metrics.RecordLatency("bridge_append", time.Since(start).Seconds())
	b.metrics.RecordEntryConsumed(b.topic)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTickBridge)(nil)
