package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"ms-groups/internal/logger"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer MessageWriter
	logger *logger.Logger
	mock   bool
}

// NewProducer writes to any topic; each message names its own.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewProducerWithWriter(writer, log)
}

func NewProducerWithWriter(w MessageWriter, log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	return &Producer{writer: w, logger: log}
}

// NewMockProducer logs messages instead of sending them.
func NewMockProducer(log *logger.Logger) *Producer {
	if log == nil {
		log = logger.Discard()
	}
	return &Producer{logger: log, mock: true}
}

// Publish JSON-encodes value and writes it to topic under key.
func (p *Producer) Publish(ctx context.Context, topic, key string, value any) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s: %w", topic, err)
	}

	if p.mock {
		p.logger.LogKafka("MOCK PUBLISH", topic, string(msgBytes))
		return nil
	}

	p.logger.LogKafka("PUBLISH", topic, fmt.Sprintf("key=%s (%d bytes)", key, len(msgBytes)))

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.mock || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
