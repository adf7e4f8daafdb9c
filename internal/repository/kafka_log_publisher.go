package repository

import (
	"context"

	pkgkafka "PoolWatch/pkg/kafka"
	"PoolWatch/pkg/logger"
)

// KafkaLogPublisher feeds aggregated error logs to a Kafka topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaLogPublisher creates a publisher for the log collector.
func NewKafkaLogPublisher(producer *pkgkafka.Producer) logger.Publisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
