package repository

import (
	"context"

	"PoolWatch/internal/domain/models"
	"PoolWatch/internal/domain/repository"
	pkgkafka "PoolWatch/pkg/kafka"
)

// KafkaEmitter publishes emission events to a Kafka topic, keyed by
// transaction signature so one signature always lands on one partition.
type KafkaEmitter struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEmitter creates a Kafka-backed emitter.
func NewKafkaEmitter(producer *pkgkafka.Producer, topic string) repository.Emitter {
	return &KafkaEmitter{producer: producer, topic: topic}
}

func (e *KafkaEmitter) Emit(ctx context.Context, ev *models.EmissionEvent) error {
	return e.producer.Publish(ctx, e.topic, []byte(ev.Signature), ev)
}

func (e *KafkaEmitter) Close() error {
	if e.producer != nil {
		return e.producer.Close()
	}
	return nil
}
