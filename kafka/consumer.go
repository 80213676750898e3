package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shopbot-svc/models"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = time.Second
)

// Notifier acts on one purchase event.
type Notifier interface {
	Notify(ctx context.Context, event models.PurchaseEvent) error
}

func InitConsumer(broker string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	consumer, err := sarama.NewConsumer([]string{broker}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized", zap.String("broker", broker))
	return consumer, nil
}

// Consumer reads the purchase topic from the newest offset and hands every
// event to the notifier.
type Consumer struct {
	consumer   sarama.Consumer
	topic      string
	notifier   Notifier
	logger     *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewConsumer(consumer sarama.Consumer, topic string, notifier Notifier, logger *zap.Logger) *Consumer {
	return &Consumer{
		consumer:   consumer,
		topic:      topic,
		notifier:   notifier,
		logger:     logger,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
}

// Run consumes every partition of the topic until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	partitions, err := c.consumer.Partitions(c.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	consumers := make([]sarama.PartitionConsumer, 0, len(partitions))
	for _, partition := range partitions {
		pc, err := c.consumer.ConsumePartition(c.topic, partition, sarama.OffsetNewest)
		if err != nil {
			for _, opened := range consumers {
				opened.AsyncClose()
			}
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}
		consumers = append(consumers, pc)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, pc := range consumers {
		g.Go(func() error {
			defer pc.Close()
			c.consumePartition(ctx, pc)
			return nil
		})
	}

	c.logger.Info("Kafka consumer started", zap.String("topic", c.topic), zap.Int("partitions", len(partitions)))
	return g.Wait()
}

func (c *Consumer) consumePartition(ctx context.Context, pc sarama.PartitionConsumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case message, ok := <-pc.Messages():
			if !ok {
				return
			}
			if err := c.handleMessageWithRetry(ctx, message); err != nil {
				c.logger.Error("Failed to handle message after retries",
					zap.Int32("partition", message.Partition),
					zap.Int64("offset", message.Offset),
					zap.Error(err),
				)
			}
		case err, ok := <-pc.Errors():
			if ok {
				c.logger.Error("Kafka consumer error", zap.Error(err))
			}
		}
	}
}

func (c *Consumer) handleMessageWithRetry(ctx context.Context, message *sarama.ConsumerMessage) error {
	var event models.PurchaseEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		// Redelivering a malformed message cannot fix it.
		c.logger.Warn("Dropping malformed event", zap.Int64("offset", message.Offset), zap.Error(err))
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.handleMessage(ctx, message, event)
		if lastErr == nil {
			return nil
		}
		if attempt < c.maxRetries {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn("Retrying message handling",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Consumer) handleMessage(ctx context.Context, message *sarama.ConsumerMessage, event models.PurchaseEvent) error {
	ctx = otel.GetTextMapPropagator().Extract(ctx, consumerCarrier(message.Headers))
	ctx, span := otel.Tracer("kafka-consumer").Start(ctx, "ProcessPurchaseEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.type", string(event.EventType)),
		attribute.Int64("buyer.id", event.BuyerID),
	)

	if err := c.notifier.Notify(ctx, event); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
