package kafka

import (
	"context"
	"ms-groups/internal/config"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"time"
)

// OutcomeEvent is the message published for every finished group request.
type OutcomeEvent struct {
	EventType   string    `json:"event_type"`
	BatchID     string    `json:"batch_id"`
	PageID      string    `json:"page_id,omitempty"`
	Index       int       `json:"index"`
	GroupKey    string    `json:"group_key"`
	TargetURL   string    `json:"target_url"`
	Status      string    `json:"status"`
	HTTPStatus  int       `json:"http_status,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

const (
	EventDispatchSucceeded = "GROUP_DISPATCH_SUCCEEDED"
	EventDispatchFailed    = "GROUP_DISPATCH_FAILED"
)

func NewOutcomeEvent(r models.DispatchResult) OutcomeEvent {
	eventType := EventDispatchFailed
	if r.Succeeded() {
		eventType = EventDispatchSucceeded
	}
	return OutcomeEvent{
		EventType:   eventType,
		BatchID:     r.BatchID,
		PageID:      r.PageID,
		Index:       r.Index,
		GroupKey:    r.GroupKey,
		TargetURL:   r.TargetURL,
		Status:      string(r.Status),
		HTTPStatus:  r.HTTPStatus,
		Error:       r.Error,
		DurationMS:  r.Duration.Milliseconds(),
		CompletedAt: r.CompletedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// ResultPublisher turns dispatch results into outcome events, keyed by batch
// so one batch stays on one partition.
type ResultPublisher struct {
	publisher Publisher
	topics    config.TopicConfig
	timeout   time.Duration
	logger    *logger.Logger
}

func NewResultPublisher(p Publisher, topics config.TopicConfig, log *logger.Logger) *ResultPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &ResultPublisher{publisher: p, topics: topics, timeout: 5 * time.Second, logger: log}
}

// Observe publishes r. Use it as a dispatch observer.
func (rp *ResultPublisher) Observe(r models.DispatchResult) {
	topic := rp.topics.DispatchFailed
	if r.Succeeded() {
		topic = rp.topics.DispatchSucceeded
	}

	ctx, cancel := context.WithTimeout(context.Background(), rp.timeout)
	defer cancel()

	if err := rp.publisher.Publish(ctx, topic, r.BatchID, NewOutcomeEvent(r)); err != nil {
		rp.logger.Error("KAFKA", "Failed to publish dispatch outcome: "+err.Error())
	}
}
