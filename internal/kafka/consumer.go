package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-groups/internal/logger"

	"github.com/segmentio/kafka-go"
)

type Consumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewConsumer creates a consumer for the given topics and group.
func NewConsumer(brokers []string, topics []string, groupID string, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Discard()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupTopics: topics,
		GroupID:     groupID,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return &Consumer{reader: reader, logger: log}
}

// Start reads outcome events until ctx is done.
func (c *Consumer) Start(ctx context.Context, handler func(OutcomeEvent)) error {
	c.logger.LogKafka("CONSUME", fmt.Sprint(c.reader.Config().GroupTopics), "consumer started")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading message: %v", err))
			return err
		}

		event, err := DecodeOutcome(msg)
		if err != nil {
			c.logger.Warn("KAFKA", err.Error())
			continue
		}
		handler(event)
	}
}

// DecodeOutcome parses one outcome message.
func DecodeOutcome(msg kafka.Message) (OutcomeEvent, error) {
	var event OutcomeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return OutcomeEvent{}, fmt.Errorf("failed to unmarshal message at %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	return event, nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
