package producers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/stayhub-wallet-ledger/internal/config"
	"github.com/stayhub-wallet-ledger/internal/correlation"
)

const correlationHeader = "X-Correlation-ID"

var (
	topicReadAttempts = 5
	topicRetryDelay   = 2 * time.Second
)

// ensureTopic creates the topic when it cannot be found, retrying partition
// reads first because a fresh broker may not have loaded metadata yet.
func ensureTopic(admin topicAdmin, topicName string, numPartitions int, replicationFactor int, log *slog.Logger) error {
	var partitions []kafka.Partition
	var err error

	log.Info("Checking if Kafka topic exists", "topic", topicName)
	for i := 0; i < topicReadAttempts; i++ {
		partitions, err = admin.ReadPartitions(topicName)
		if err == nil && len(partitions) > 0 {
			log.Info("Kafka topic already exists", "topic", topicName, "partitions", len(partitions))
			return nil
		}
		log.Warn("Failed to read partitions, retrying...", "topic", topicName, "attempt", i+1, "error", err)
		time.Sleep(topicRetryDelay)
	}

	topicConfig := kafka.TopicConfig{
		Topic:             topicName,
		NumPartitions:     numPartitions,
		ReplicationFactor: replicationFactor,
	}
	if topicConfig.NumPartitions <= 0 {
		topicConfig.NumPartitions = 1
	}
	if topicConfig.ReplicationFactor <= 0 {
		topicConfig.ReplicationFactor = 1
	}

	log.Info("Kafka topic not found, creating it", "topic", topicName, "partitions", topicConfig.NumPartitions)
	if err := admin.CreateTopics(topicConfig); err != nil {
		return fmt.Errorf("failed to create kafka topic %s: %w", topicName, err)
	}
	log.Info("Successfully created Kafka topic", "topic", topicName)
	return nil
}

// provisionTopic dials the broker and ensures the topic exists
func provisionTopic(logger *slog.Logger, cfg *config.KafkaConfig, topic string) error {
	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	return ensureTopic(conn, topic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
}

// headersFromContext carries the request correlation id onto the message
func headersFromContext(ctx context.Context) []kafka.Header {
	id := correlation.FromContext(ctx)
	if id == "" {
		return nil
	}
	return []kafka.Header{{Key: correlationHeader, Value: []byte(id)}}
}
