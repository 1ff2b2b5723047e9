package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"ms-groups/internal/logger"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil)

	err := p.Publish(context.Background(), "groups.dispatch.succeeded", "batch-1", map[string]string{"group_key": "1"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "groups.dispatch.succeeded", msg.Topic)
	assert.Equal(t, "batch-1", string(msg.Key))
	assert.JSONEq(t, `{"group_key":"1"}`, string(msg.Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewProducerWithWriter(&fakeWriter{err: boom}, nil)

	err := p.Publish(context.Background(), "t", "k", "v")
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "t")
}

func TestProducer_PublishRejectsUnencodable(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, nil)

	err := p.Publish(context.Background(), "t", "k", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, w.messages)
}

func TestMockProducer_LogsInsteadOfWriting(t *testing.T) {
	var buf bytes.Buffer
	p := NewMockProducer(logger.NewWithWriter(&buf))

	require.NoError(t, p.Publish(context.Background(), "groups.dispatch.failed", "b", OutcomeEvent{BatchID: "b"}))
	require.NoError(t, p.Close())

	assert.Contains(t, buf.String(), "MOCK PUBLISH")
	assert.Contains(t, buf.String(), "groups.dispatch.failed")
}

func TestDecodeOutcome(t *testing.T) {
	value, err := json.Marshal(OutcomeEvent{EventType: EventDispatchFailed, BatchID: "b1", HTTPStatus: 500})
	require.NoError(t, err)

	event, err := DecodeOutcome(kafka.Message{Value: value})
	require.NoError(t, err)
	assert.Equal(t, "b1", event.BatchID)
	assert.Equal(t, 500, event.HTTPStatus)

	_, err = DecodeOutcome(kafka.Message{Topic: "x", Value: []byte("not json")})
	assert.Error(t, err)
}
