package scheduler

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/tradieapp/internal/observability/context"
	obslogger "github.com/smallbiznis/tradieapp/internal/observability/logger"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"go.uber.org/zap"
)

// jobRun counts what one sweep did, for its finish line.
type jobRun struct {
	job       string
	id        string
	started   time.Time
	processed int
	failed    int
}

type jobRunKey struct{}

func runFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (r *jobRun) done() {
	if r != nil {
		r.processed++
	}
}

// beginRun attaches a run to ctx and logs its start. When ctx already carries
// a run the sweep is nested and the returned finish func is a no-op.
func (s *Scheduler) beginRun(ctx context.Context, job string) (context.Context, func()) {
	if runFromContext(ctx) != nil {
		return ctx, func() {}
	}

	run := &jobRun{job: job, id: s.genID.Generate().String(), started: time.Now()}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")

	s.logger(ctx).Info("scheduler.job.start",
		zap.String("job", job),
		zap.String("run_id", run.id),
		zap.Int("batch_size", s.cfg.BatchSize),
	)
	return ctx, func() {
		fields := []zap.Field{
			zap.String("job", run.job),
			zap.String("run_id", run.id),
			zap.Int64("duration_ms", time.Since(run.started).Milliseconds()),
			zap.Int("processed_count", run.processed),
			zap.Int("error_count", run.failed),
		}
		if run.failed > 0 {
			s.logger(ctx).Warn("scheduler.job.finish", fields...)
			return
		}
		s.logger(ctx).Info("scheduler.job.finish", fields...)
	}
}

// failed logs a per-row or fetch failure. Serialization failures are marked
// retryable since the next tick picks the row up again.
func (s *Scheduler) failed(ctx context.Context, msg string, orgID snowflake.ID, err error, fields ...zap.Field) {
	run := runFromContext(ctx)
	if run != nil {
		run.failed++
	}
	if orgID != 0 {
		ctx = obscontext.WithOrgID(ctx, orgID.String())
	}

	base := []zap.Field{zap.Error(err), zap.Bool("retryable", db.IsSerializationFailure(err))}
	if run != nil {
		base = append(base, zap.String("job", run.job), zap.String("run_id", run.id))
	}
	s.logger(ctx).Error(msg, append(base, fields...)...)
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
