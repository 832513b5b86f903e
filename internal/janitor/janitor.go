// Package janitor runs the scheduled housekeeping of the upload area:
// reaping stale temp files and refreshing storage usage gauges.
package janitor

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Marax1234/PortfolioWebapp-sub000/internal/observability"
	"github.com/Marax1234/PortfolioWebapp-sub000/internal/storage"
)

type Janitor struct {
	cron        *cron.Cron
	store       *storage.Store
	metrics     *observability.Metrics
	logger      *zap.Logger
	maxAgeHours int
}

// New creates a Janitor. Metrics may be nil.
func New(store *storage.Store, metrics *observability.Metrics, logger *zap.Logger, maxAgeHours int) *Janitor {
	return &Janitor{
		cron:        cron.New(),
		store:       store,
		metrics:     metrics,
		logger:      logger,
		maxAgeHours: maxAgeHours,
	}
}

// Start schedules the hourly run and performs one immediately, so a fresh
// process reports usage without waiting an hour.
func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc("@hourly", j.run); err != nil {
		return err
	}
	j.cron.Start()
	go j.run()
	j.logger.Info("janitor started", zap.Int("temp_max_age_hours", j.maxAgeHours))
	return nil
}

// Stop halts the schedule. A run already in progress finishes.
func (j *Janitor) Stop() {
	j.cron.Stop()
	j.logger.Info("janitor stopped")
}

func (j *Janitor) run() {
	removed := j.store.ReapTemp(j.maxAgeHours)
	if removed > 0 {
		j.logger.Info("reaped stale temp files", zap.Int("removed", removed))
	}
	j.metrics.TempReaped(removed)

	j.metrics.SetStorageUsage(j.store.UsageStats())
}
