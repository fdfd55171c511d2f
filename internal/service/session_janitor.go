package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admin-panel/pkg/jobs"
)

// PurgeJobType identifies expired-session purge jobs on the queue.
const PurgeJobType = "session.purge"

type sessionPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionJanitor removes expired sessions on a cron schedule. Each tick
// enqueues a purge job so storage failures are retried by the queue.
type SessionJanitor struct {
	store    sessionPurger
	queue    *jobs.Queue
	cron     *cron.Cron
	schedule string
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionJanitor wires the purge handler onto queue. queue may be nil
// when only RunOnce is needed.
func NewSessionJanitor(store sessionPurger, queue *jobs.Queue, schedule string, metrics *MetricsService, logger *zap.Logger) *SessionJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	j := &SessionJanitor{
		store:    store,
		queue:    queue,
		cron:     cron.New(),
		schedule: schedule,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if queue != nil {
		queue.Handle(PurgeJobType, func(ctx context.Context, _ jobs.Job) error {
			_, err := j.RunOnce(ctx)
			return err
		})
	}
	return j
}

// RunOnce deletes every session that has expired by now.
func (j *SessionJanitor) RunOnce(ctx context.Context) (int64, error) {
	deleted, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("session purge failed", zap.Error(err))
		return 0, err
	}
	j.metrics.AddSessionsPurged(deleted)
	j.logger.Info("expired sessions purged", zap.Int64("deleted", deleted))
	return deleted, nil
}

// Start schedules purge jobs. The queue must already be started.
func (j *SessionJanitor) Start() error {
	if j.queue == nil {
		return fmt.Errorf("session janitor has no queue")
	}
	if _, err := j.cron.AddFunc(j.schedule, j.enqueue); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", j.schedule, err)
	}
	j.cron.Start()
	j.logger.Info("session janitor started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts scheduling and waits for a running tick to return.
func (j *SessionJanitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *SessionJanitor) enqueue() {
	if err := j.queue.Enqueue(jobs.Job{Type: PurgeJobType}); err != nil {
		j.logger.Warn("failed to enqueue session purge", zap.Error(err))
	}
}
