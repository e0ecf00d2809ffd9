package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/climbing-tracker/internal/config"
	"github.com/climbing-tracker/internal/domain"
	"github.com/climbing-tracker/internal/service"
)

// Consumer consumes climb events from Kafka and hands them to the handler in batches
type Consumer struct {
	config        *config.KafkaConfig
	handler       service.ClimbEventHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler service.ClimbEventHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	ready := make(chan bool)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		session := ready
		for {
			handler := &consumerGroupHandler{
				config:  c.config,
				handler: c.handler,
				logger:  c.logger,
				ready:   session,
			}

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			if c.ctx.Err() != nil {
				return
			}

			// A join that failed before Setup leaves its channel open for the next attempt.
			select {
			case <-session:
				session = make(chan bool)
			default:
			}
		}
	}()

	select {
	case <-ready:
		c.logger.Info("Kafka consumer ready")
	case <-c.ctx.Done():
		return c.ctx.Err()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	config  *config.KafkaConfig
	handler service.ClimbEventHandler
	logger  *slog.Logger
	ready   chan bool
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	close(h.ready)
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim collects events until the batch is full or the batch timeout fires, then
// hands the batch over in one call. Offsets are marked only after their batch was handled.
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	b := &batch{
		events:  make([]domain.ClimbEvent, 0, h.config.BatchSize),
		pending: make([]*sarama.ConsumerMessage, 0, h.config.BatchSize),
	}
	timer := time.NewTimer(h.config.BatchTimeout)
	defer timer.Stop()

	flush := func() {
		if len(b.pending) == 0 {
			return
		}
		if len(b.events) > 0 {
			h.deliver(session.Context(), b.events)
		}
		for _, m := range b.pending {
			session.MarkMessage(m, "")
		}
		b.reset()
	}

	for {
		select {
		case <-session.Context().Done():
			flush()
			return nil

		case <-timer.C:
			flush()
			timer.Reset(h.config.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				flush()
				return nil
			}
			b.pending = append(b.pending, message)

			event, err := decodeEvent(message.Value)
			if err != nil {
				h.logger.Warn("dropping climb event",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}
			b.events = append(b.events, event)

			if len(b.events) >= h.config.BatchSize {
				flush()
				timer.Reset(h.config.BatchTimeout)
			}
		}
	}
}

// batch holds decoded events and every message read since the last flush, including
// undecodable ones that still need their offset marked
type batch struct {
	events  []domain.ClimbEvent
	pending []*sarama.ConsumerMessage
}

func (b *batch) reset() {
	b.events = b.events[:0]
	b.pending = b.pending[:0]
}

// deliver hands events to the handler, retrying up to RetryAttempts times. A batch that still
// fails is logged and skipped; the next refresh catches up.
func (h *consumerGroupHandler) deliver(sessionCtx context.Context, events []domain.ClimbEvent) {
	attempts := max(h.config.RetryAttempts, 1)
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := h.handler.HandleClimbEvents(ctx, events)
		cancel()
		if err == nil {
			h.logger.Debug("processed batch", "batch_size", len(events))
			return
		}
		if attempt >= attempts {
			h.logger.Error("failed to process batch", "error", err, "batch_size", len(events), "attempts", attempt)
			return
		}
		h.logger.Warn("retrying batch", "error", err, "attempt", attempt)

		select {
		case <-sessionCtx.Done():
			h.logger.Error("session ended before batch was processed", "error", err, "batch_size", len(events))
			return
		case <-time.After(h.config.RetryDelay):
		}
	}
}

func decodeEvent(value []byte) (domain.ClimbEvent, error) {
	var event domain.ClimbEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("decoding climb event: %w", err)
	}
	switch event.Type {
	case domain.ClimbEventCreated, domain.ClimbEventUpdated, domain.ClimbEventDeleted:
	default:
		return event, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidRequest, event.Type)
	}
	if event.UserID == "" {
		return event, fmt.Errorf("%w: event without user", domain.ErrInvalidRequest)
	}
	return event, nil
}
