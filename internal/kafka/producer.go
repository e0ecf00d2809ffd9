package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
)

// Producer publishes climb events to Kafka
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer creates a synchronous producer for the configured brokers
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Retry.Max = cfg.RetryAttempts
	saramaConfig.Producer.Retry.Backoff = cfg.RetryDelay
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating producer: %w", err)
	}
	return NewWithProducer(producer, cfg.Topic, logger), nil
}

// NewWithProducer wraps an existing sarama producer
func NewWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	return &Producer{producer: producer, topic: topic, logger: logger}
}

// PublishClimbEvent sends one event keyed by user so a climber's events stay ordered
func (p *Producer) PublishClimbEvent(ctx context.Context, event domain.ClimbEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding climb event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.UserID),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("sending climb event: %w", err)
	}

	p.logger.DebugContext(ctx, "climb event published",
		"type", event.Type,
		"climb_id", event.ClimbID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
