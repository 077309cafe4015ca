package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/makersite/makersite/pkg/observability"
)

// Scheduler runs registered jobs on cron schedules
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// NewScheduler creates an idle scheduler
func NewScheduler(logger *observability.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// AddPurge registers the purge job on the given cron schedule
func (s *Scheduler) AddPurge(schedule string, purger *Purger) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if _, err := purger.Run(context.Background()); err != nil {
			s.logger.WithError(err).Error("purge run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	s.logger.WithField("schedule", schedule).Info("purge job scheduled")
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
