package db

import (
	"context"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/fincore/pkg/logger"
)

// queryLogger routes GORM's statement trace into the service logger. Only
// statements slower than the threshold are written; errors surface through
// the callers that receive them.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil || slow <= 0 {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow}
}

func (q *queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return q }

func (q *queryLogger) Info(context.Context, string, ...interface{}) {}

func (q *queryLogger) Warn(context.Context, string, ...interface{}) {}

func (q *queryLogger) Error(context.Context, string, ...interface{}) {}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), _ error) {
	elapsed := time.Since(begin)
	if elapsed < q.slow {
		return
	}
	sql, rows := fc()
	q.logg.Warn(q.logg.WithFields(ctx, map[string]any{
		"elapsed_ms": elapsed.Milliseconds(),
		"rows":       rows,
		"sql":        sql,
	}), "slow query")
}
