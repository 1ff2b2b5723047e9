package kafka

import (
	"context"
	"errors"
	"ms-groups/internal/config"
	"ms-groups/internal/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, topic, key string, value any) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var testTopics = config.TopicConfig{
	DispatchSucceeded: "groups.dispatch.succeeded",
	DispatchFailed:    "groups.dispatch.failed",
}

func TestResultPublisher_RoutesByStatus(t *testing.T) {
	mockPublisher := new(MockPublisher)
	rp := NewResultPublisher(mockPublisher, testTopics, nil)

	ok := models.DispatchResult{
		BatchID:     "b1",
		Index:       0,
		GroupKey:    "1",
		TargetURL:   "http://x/g/1",
		Status:      models.StatusSucceeded,
		HTTPStatus:  200,
		Duration:    1500 * time.Millisecond,
		CompletedAt: time.Now(),
	}
	failed := models.DispatchResult{
		BatchID:    "b1",
		Index:      1,
		GroupKey:   "2",
		Status:     models.StatusFailed,
		HTTPStatus: 500,
		Error:      "status 500",
	}

	mockPublisher.On("Publish", mock.Anything, "groups.dispatch.succeeded", "b1",
		mock.MatchedBy(func(e OutcomeEvent) bool {
			return e.EventType == EventDispatchSucceeded && e.GroupKey == "1" && e.DurationMS == 1500
		})).Return(nil).Once()
	mockPublisher.On("Publish", mock.Anything, "groups.dispatch.failed", "b1",
		mock.MatchedBy(func(e OutcomeEvent) bool {
			return e.EventType == EventDispatchFailed && e.Error == "status 500" && e.Index == 1
		})).Return(nil).Once()

	rp.Observe(ok)
	rp.Observe(failed)

	mockPublisher.AssertExpectations(t)
}

func TestResultPublisher_PublishErrorIsSwallowed(t *testing.T) {
	mockPublisher := new(MockPublisher)
	rp := NewResultPublisher(mockPublisher, testTopics, nil)

	mockPublisher.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		rp.Observe(models.DispatchResult{BatchID: "b", Status: models.StatusFailed})
	})
	mockPublisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestNewOutcomeEvent(t *testing.T) {
	e := NewOutcomeEvent(models.DispatchResult{BatchID: "b", PageID: "p", Status: models.StatusSucceeded})
	assert.Equal(t, EventDispatchSucceeded, e.EventType)
	assert.Equal(t, "p", e.PageID)
	assert.Equal(t, "succeeded", e.Status)
}
