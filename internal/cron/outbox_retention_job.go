package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/fincore/pkg/logger"
)

const (
	defaultRetentionDays = 30
	retentionChunk       = 500
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repository    outboxPurger
	RetentionDays int
	ChunkSize     int
}

// outboxRetentionJob trims published outbox rows. Each chunk commits on its
// own so a large backlog never holds one long delete transaction.
type outboxRetentionJob struct {
	logg  *logger.Logger
	db    txRunner
	repo  outboxPurger
	keep  time.Duration
	chunk int
	now   func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	}
	days := params.RetentionDays
	if days <= 0 {
		days = defaultRetentionDays
	}
	chunk := params.ChunkSize
	if chunk <= 0 {
		chunk = retentionChunk
	}
	return &outboxRetentionJob{
		logg:  params.Logger,
		db:    params.DB,
		repo:  params.Repository,
		keep:  time.Duration(days) * 24 * time.Hour,
		chunk: chunk,
		now:   time.Now,
	}, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run never touches unpublished rows. Their count is logged so a stalled
// publisher shows up here too.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.keep)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.repo.DeletePublishedBefore(ctx, tx, cutoff, j.chunk)
			return err
		})
		if err != nil {
			return fmt.Errorf("purge published before %s: %w", cutoff.Format(time.RFC3339), err)
		}
		total += n
		if n < int64(j.chunk) {
			break
		}
	}

	fields := map[string]any{"cutoff": cutoff, "rows_deleted": total}
	pending, err := j.repo.CountPending(ctx)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "outbox pending count failed")
	} else {
		fields["pending"] = pending
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "outbox retention done")
	return nil
}
