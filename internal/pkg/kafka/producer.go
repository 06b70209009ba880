package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Gopher0727/DomainHub/config"
)

// Producer publishes domain events to Kafka.
// It manages the connection to the brokers and serializes events to JSON.
type Producer struct {
	producer sarama.SyncProducer
	config   *config.KafkaConfig
}

// NewProducer creates a new Kafka producer instance.
// It establishes a connection to the Kafka brokers specified in the configuration.
//
// Parameters:
//   - config: Kafka configuration containing broker addresses and producer settings
//
// Returns:
//   - *Producer: The created producer instance
//   - error: Any error encountered during initialization
func NewProducer(config *config.KafkaConfig) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = config.MaxRetries
	saramaConfig.Producer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	// Set connection timeouts to prevent hanging
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Metadata.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return &Producer{
		producer: producer,
		config:   config,
	}, nil
}

// PublishRedemption publishes a redemption event to the configured topic.
// The invite code is used as the message key so events for the same code
// land in the same partition in order.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - event: The redemption event to publish
//
// Returns:
//   - error: Any error encountered during serialization or sending
func (p *Producer) PublishRedemption(ctx context.Context, event RedemptionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal redemption event: %w", err)
	}
	_, _, err = p.produceWithRetry(ctx, p.config.Topic, []byte(event.Code), payload, p.config.MaxRetries)
	return err
}

func (p *Producer) produce(topic string, key []byte, value []byte) (partition int32, offset int64, err error) {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != nil {
		msg.Key = sarama.ByteEncoder(key)
	}

	partition, offset, err = p.producer.SendMessage(msg)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}
	return partition, offset, nil
}

func (p *Producer) produceWithRetry(ctx context.Context, topic string, key []byte, value []byte, maxRetries int) (partition int32, offset int64, err error) {
	var lastErr error
	backoff := time.Duration(p.config.RetryBackoffMs) * time.Millisecond
	for attempt := 0; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		default:
		}

		partition, offset, err = p.produce(topic, key, value)
		if err == nil {
			return partition, offset, nil
		}
		lastErr = err

		if attempt < maxRetries {
			time.Sleep(backoff)
			backoff *= 2 // Exponential backoff
		}
	}
	return 0, 0, fmt.Errorf("failed to send message after %d attempts: %w", maxRetries, lastErr)
}

// Close closes the Kafka producer and releases all resources.
// It should be called when the producer is no longer needed.
//
// Returns:
//   - error: Any error encountered during closing
func (p *Producer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return fmt.Errorf("failed to close kafka producer: %w", err)
		}
	}
	return nil
}
