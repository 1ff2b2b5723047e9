package store

import (
	"context"
	"fmt"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"
	"time"
)

type ResultWriter interface {
	RecordResult(ctx context.Context, r models.DispatchResult) error
}

// Recorder persists every dispatch result. Use Observe as a dispatch observer.
type Recorder struct {
	writer  ResultWriter
	timeout time.Duration
	logger  *logger.Logger
}

func NewRecorder(w ResultWriter, log *logger.Logger) *Recorder {
	if log == nil {
		log = logger.Discard()
	}
	return &Recorder{writer: w, timeout: 5 * time.Second, logger: log}
}

func (r *Recorder) Observe(res models.DispatchResult) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.writer.RecordResult(ctx, res); err != nil {
		r.logger.Error("DATABASE", fmt.Sprintf("Failed to persist dispatch result: %v", err))
	}
}
