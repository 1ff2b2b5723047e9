package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-groups/internal/models"
	"time"

	"github.com/uptrace/bun"
)

var ErrBatchNotFound = errors.New("store: batch not found")

type DB struct {
	Bun *bun.DB
}

// ---------------- BATCHES ----------------

// CreateBatch inserts a batch row when a dispatch starts.
func (d *DB) CreateBatch(ctx context.Context, b *models.Batch) error {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now()
	}
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	return err
}

// CompleteBatch stores the final counts of a batch.
func (d *DB) CompleteBatch(ctx context.Context, batchID string, succeeded, failed int) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Batch)(nil)).
		Set("succeeded = ?", succeeded).
		Set("failed = ?", failed).
		Set("completed_at = ?", time.Now()).
		Where("batch_id = ?", batchID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrBatchNotFound
	}
	return nil
}

// GetBatch → fetch one batch by its ID
func (d *DB) GetBatch(ctx context.Context, batchID string) (*models.Batch, error) {
	var batch models.Batch
	err := d.Bun.NewSelect().
		Model(&batch).
		Where("batch_id = ?", batchID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// ListBatchesByPage returns the batches of a page, newest first.
func (d *DB) ListBatchesByPage(ctx context.Context, pageID string) ([]models.Batch, error) {
	var batches []models.Batch
	err := d.Bun.NewSelect().
		Model(&batches).
		Where("page_id = ?", pageID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return batches, nil
}

// ---------------- RECORDS ----------------

// RecordResult inserts one request outcome.
func (d *DB) RecordResult(ctx context.Context, r models.DispatchResult) error {
	record := models.NewDispatchRecord(r)
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}
	if _, err := d.Bun.NewInsert().Model(&record).Exec(ctx); err != nil {
		return fmt.Errorf("failed to record result %s/%d: %w", r.BatchID, r.Index, err)
	}
	return nil
}

// ListRecords → all outcomes of a batch, in request order
func (d *DB) ListRecords(ctx context.Context, batchID string) ([]models.DispatchRecord, error) {
	var records []models.DispatchRecord
	err := d.Bun.NewSelect().
		Model(&records).
		Where("batch_id = ?", batchID).
		Order("request_idx ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *DB) Close() error {
	return d.Bun.Close()
}
