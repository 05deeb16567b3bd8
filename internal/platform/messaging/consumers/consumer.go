package consumers

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stayhub-wallet-ledger/internal/config"
)

// MessageHandler processes one message. A returned error means the message
// could not be applied yet and must be redelivered.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// Consumer defines the message queue consumer interface
type Consumer interface {
	Subscribe(ctx context.Context, handler MessageHandler) error
	Close() error
}

// MessageReader wraps the kafka.Reader methods the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer implements Consumer using a Kafka consumer group
type KafkaConsumer struct {
	reader  MessageReader
	logger  *slog.Logger
	topic   string
	groupID string

	retryInitial time.Duration
	retryMax     time.Duration
	done         chan struct{}
}

func NewKafkaConsumer(_ context.Context, logger *slog.Logger, cfg *config.KafkaConfig, topic string) *KafkaConsumer {
	startOffset := kafka.FirstOffset
	if cfg.StartOffset == kafka.LastOffset {
		startOffset = kafka.LastOffset
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		MaxWait:     cfg.MaxWait,
		StartOffset: startOffset,
	})

	return newKafkaConsumer(logger, reader, topic, cfg.ConsumerGroup)
}

func newKafkaConsumer(logger *slog.Logger, reader MessageReader, topic, groupID string) *KafkaConsumer {
	return &KafkaConsumer{
		reader:       reader,
		logger:       logger,
		topic:        topic,
		groupID:      groupID,
		retryInitial: time.Second,
		retryMax:     30 * time.Second,
		done:         make(chan struct{}),
	}
}

// Subscribe starts consuming in the background until ctx is canceled.
// Messages are handled one at a time in partition order; a failing message is
// retried with backoff and its offset is committed only after it succeeds.
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler MessageHandler) error {
	c.logger.Info("Subscribed to Kafka topic",
		"topic", c.topic,
		"group_id", c.groupID,
	)

	go func() {
		defer close(c.done)
		c.run(ctx, handler)
	}()

	return nil
}

// Done is closed once the consume loop has stopped
func (c *KafkaConsumer) Done() <-chan struct{} {
	return c.done
}

func (c *KafkaConsumer) run(ctx context.Context, handler MessageHandler) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Context canceled, stopping consumer", "topic", c.topic, "group_id", c.groupID)
				return
			}
			c.logger.Error("Failed to fetch message from Kafka",
				"topic", c.topic,
				"group_id", c.groupID,
				"error", err,
			)
			if !sleepCtx(ctx, c.retryInitial) {
				return
			}
			continue
		}

		c.logger.Debug("Received message from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
		)

		if !c.handleWithRetry(ctx, handler, msg) {
			return
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message after successful processing",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"error", err,
			)
		}
	}
}

// handleWithRetry reports false when ctx ended before the message succeeded
func (c *KafkaConsumer) handleWithRetry(ctx context.Context, handler MessageHandler, msg kafka.Message) bool {
	backoff := c.retryInitial
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg.Key, msg.Value)
		if err == nil {
			return true
		}

		c.logger.Error("Failed to process message, will retry without committing",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"attempt", attempt,
			"retry_in", backoff,
			"error", err,
		)
		if !sleepCtx(ctx, backoff) {
			return false
		}
		backoff *= 2
		if backoff > c.retryMax {
			backoff = c.retryMax
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
