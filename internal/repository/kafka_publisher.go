package repository

import (
	"context"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// KafkaPublisher implements Publisher for Kafka.
type KafkaPublisher struct {
	producer    *pkgkafka.Producer
	signalTopic string
}

// NewKafkaPublisher creates a Kafka-backed signal publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, signalTopic string) drepo.Publisher {
	return &KafkaPublisher{producer: producer, signalTopic: signalTopic}
}

func (p *KafkaPublisher) PublishSignal(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.signalTopic, []byte(s.Symbol), s.Event())
}

func (p *KafkaPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
