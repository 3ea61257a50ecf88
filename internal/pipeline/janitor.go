// internal/pipeline/janitor.go
package pipeline

import (
	"context"
	"fmt"
	"time"

	"legal-analyzer/internal/common/logger"

	"github.com/robfig/cron/v3"
)

const DefaultJanitorSchedule = "0 3 * * *"

// Purger removes archived analyses completed before cutoff.
type Purger interface {
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Janitor enforces the archive retention window on a cron schedule.
type Janitor struct {
	purger    Purger
	retention time.Duration
	cron      *cron.Cron
	logger    logger.Logger
	now       func() time.Time
}

func NewJanitor(purger Purger, schedule string, retention time.Duration, log logger.Logger) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	j := &Janitor{
		purger:    purger,
		retention: retention,
		cron:      cron.New(),
		logger:    log.With(map[string]interface{}{"component": "janitor"}),
		now:       time.Now,
	}
	if _, err := j.cron.AddFunc(schedule, func() { _, _ = j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// RunOnce purges everything older than the retention window.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.retention)
	purged, err := j.purger.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.WithError(err).Error("Archive purge failed", map[string]interface{}{"cutoff": cutoff})
		return 0, err
	}
	j.logger.Info("Archive purge completed", map[string]interface{}{
		"cutoff": cutoff,
		"purged": purged,
	})
	return purged, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *Janitor) Stop(ctx context.Context) {
	done := j.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
