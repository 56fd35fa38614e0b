package repository

import (
	"context"

	pkgkafka "GovPulse/pkg/kafka"
)

// KafkaExporter forwards audit records to an external Kafka topic.
type KafkaExporter struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaExporter(producer *pkgkafka.Producer, topic string) *KafkaExporter {
	return &KafkaExporter{producer: producer, topic: topic}
}

func (e *KafkaExporter) Export(ctx context.Context, key string, payload []byte) error {
	return e.producer.Publish(ctx, e.topic, []byte(key), payload)
}

func (e *KafkaExporter) Close() error {
	return e.producer.Close()
}
