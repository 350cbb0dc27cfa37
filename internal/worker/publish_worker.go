package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/post-scheduler/internal/domain"
	"github.com/spec-kit/post-scheduler/internal/observability"
	"github.com/spec-kit/post-scheduler/internal/repository"
)

// PublishJobName identifies the due-post sweep.
const PublishJobName = "publish_posts_job"

const statusWriteTimeout = 2 * time.Second

// DuePublisher promotes due posts.
type DuePublisher interface {
	PublishDue(ctx context.Context, now time.Time) (int, error)
}

// PublishWorkerDeps bundles collaborators of the publish sweep.
type PublishWorkerDeps struct {
	Publisher DuePublisher
	Status    repository.ScanStatusStore
	Metrics   *observability.Metrics
	Clock     clockwork.Clock
	Logger    *zap.Logger
}

// NewPublishJob wraps the publisher so that a failed sweep is logged and
// recorded but never escapes the tick.
func NewPublishJob(deps PublishWorkerDeps) Job {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(ctx context.Context) {
		tickID := uuid.NewString()
		now := clock.Now().UTC()
		started := time.Now()

		published, err := deps.Publisher.PublishDue(ctx, now)
		elapsed := time.Since(started)
		deps.Metrics.RecordScan(published, elapsed, err)

		status := domain.ScanStatus{TickID: tickID, LastRunAt: now, Published: published}
		if err != nil {
			status.Error = err.Error()
			logger.Error("publish sweep failed", zap.String("tick_id", tickID), zap.Duration("elapsed", elapsed), zap.Error(err))
		} else {
			logger.Debug("publish sweep finished", zap.String("tick_id", tickID), zap.Int("published", published), zap.Duration("elapsed", elapsed))
		}

		if deps.Status != nil {
			// The tick context may already be spent when the sweep timed out.
			recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
			err := deps.Status.Record(recordCtx, status)
			cancel()
			if err != nil {
				logger.Warn("unable to record scan status", zap.String("tick_id", tickID), zap.Error(err))
			}
		}
	}
}

// StartPublishWorker registers the publish sweep and starts the scheduler.
// It returns false when a job was already registered; the scheduler is started either way.
func StartPublishWorker(scheduler *Scheduler, deps PublishWorkerDeps) bool {
	if scheduler == nil || deps.Publisher == nil {
		return false
	}
	registered := scheduler.Register(PublishJobName, NewPublishJob(deps))
	scheduler.Start()
	return registered
}
