package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/strikeground/strikeground-backend/pkg/logger"
)

const (
	outboxRetentionDays     = 30
	outboxMinAttempts       = 10
	outboxRetentionBatch    = 1000
	outboxRetentionMaxBatch = 50
)

// OutboxRetentionJobParams configures the outbox cleanup. MinAttempts should
// match the publisher's max attempts so dead rows are only removed once the
// publisher has given up on them.
type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxRetentionRepo
	Retention   int
	MinAttempts int
	BatchSize   int
}

type outboxRetentionRepo interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		retention:   params.Retention,
		minAttempts: params.MinAttempts,
		batch:       params.BatchSize,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = outboxRetentionDays
	}
	if job.minAttempts <= 0 {
		job.minAttempts = outboxMinAttempts
	}
	if job.batch <= 0 {
		job.batch = outboxRetentionBatch
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxRetentionRepo
	retention   int
	minAttempts int
	batch       int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in bounded batches, one transaction per batch.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.retention) * 24 * time.Hour)
	var total int64
	batches := 0
	for batches < outboxRetentionMaxBatch {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			rows, err := j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.minAttempts, j.batch)
			deleted = rows
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention batch %d: %w", batches+1, err)
		}
		batches++
		total += deleted
		if deleted < int64(j.batch) {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"min_attempts":   j.minAttempts,
		"batches":        batches,
		"rows_deleted":   total,
	})
	j.logg.Info(logCtx, "outbox retention cleanup complete")
	return nil
}
