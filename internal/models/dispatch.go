package models

import (
	"time"

	"github.com/uptrace/bun"
)

type DispatchStatus string

const (
	StatusSucceeded DispatchStatus = "succeeded"
	StatusFailed    DispatchStatus = "failed"
)

// Fragment is one HTML response body appended to a page container.
type Fragment struct {
	BatchID    string    `json:"batch_id"`
	GroupKey   string    `json:"group_key"`
	Seq        int       `json:"seq"`
	HTML       string    `json:"html"`
	ReceivedAt time.Time `json:"received_at"`
}

// DispatchResult is the outcome of a single group request.
type DispatchResult struct {
	BatchID     string         `json:"batch_id"`
	PageID      string         `json:"page_id,omitempty"`
	Index       int            `json:"index"`
	GroupKey    string         `json:"group_key"`
	TargetURL   string         `json:"target_url"`
	Status      DispatchStatus `json:"status"`
	HTTPStatus  int            `json:"http_status,omitempty"`
	Err         error          `json:"-"`
	Error       string         `json:"error,omitempty"`
	Duration    time.Duration  `json:"duration"`
	CompletedAt time.Time      `json:"completed_at"`
}

func (r DispatchResult) Succeeded() bool {
	return r.Status == StatusSucceeded
}

// Batch is one persisted dispatch call.
type Batch struct {
	bun.BaseModel `bun:"table:dispatch_batches"`

	BatchID     string    `bun:"batch_id,pk" json:"batch_id"`
	PageID      string    `bun:"page_id,notnull" json:"page_id"`
	Mode        string    `bun:"mode,notnull" json:"mode"`
	GroupCount  int       `bun:"group_count,notnull" json:"group_count"`
	Succeeded   int       `bun:"succeeded,notnull" json:"succeeded"`
	Failed      int       `bun:"failed,notnull" json:"failed"`
	CreatedAt   time.Time `bun:"created_at,notnull" json:"created_at"`
	CompletedAt time.Time `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
}

// DispatchRecord is one persisted request outcome.
type DispatchRecord struct {
	bun.BaseModel `bun:"table:dispatch_records"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	BatchID     string    `bun:"batch_id,notnull" json:"batch_id"`
	RequestIdx  int       `bun:"request_idx,notnull" json:"request_idx"`
	GroupKey    string    `bun:"group_key" json:"group_key"`
	TargetURL   string    `bun:"target_url" json:"target_url"`
	Status      string    `bun:"status,notnull" json:"status"`
	HTTPStatus  int       `bun:"http_status" json:"http_status"`
	Error       string    `bun:"error,nullzero" json:"error,omitempty"`
	DurationMS  int64     `bun:"duration_ms" json:"duration_ms"`
	CompletedAt time.Time `bun:"completed_at,notnull" json:"completed_at"`
}

func NewDispatchRecord(r DispatchResult) DispatchRecord {
	return DispatchRecord{
		BatchID:     r.BatchID,
		RequestIdx:  r.Index,
		GroupKey:    r.GroupKey,
		TargetURL:   r.TargetURL,
		Status:      string(r.Status),
		HTTPStatus:  r.HTTPStatus,
		Error:       r.Error,
		DurationMS:  r.Duration.Milliseconds(),
		CompletedAt: r.CompletedAt,
	}
}
