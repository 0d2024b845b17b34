package repository

import (
	"context"

	"MarketScan/internal/domain/repository"
	pkgkafka "MarketScan/pkg/kafka"
)

// KafkaPublisher implements Publisher on a Kafka topic. Scan summary events
// are keyed by event type so downstream consumers see per-type ordering.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates a Kafka-backed scan event publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) PublishScanEvent(ctx context.Context, event any) error {
	key := []byte("scan")
	if m, ok := event.(map[string]any); ok {
		if t, ok := m["type"].(string); ok && t != "" {
			key = []byte(t)
		}
	}
	return p.producer.Publish(ctx, p.topic, key, event)
}

// PublishMessage satisfies logger.Publisher so aggregated logs can share
// the producer.
func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
