package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"photogallery/internal/events"
)

type Enqueuer interface {
	Enabled() bool
	Publish(ctx context.Context, event events.Event) error
}

// Scheduler periodically enqueues maintenance events for the worker.
type Scheduler struct {
	cron            *cron.Cron
	queue           Enqueuer
	cleanupSchedule string
	log             zerolog.Logger
}

// NewScheduler takes a six-field cron spec (seconds first) for the cleanup job.
func NewScheduler(queue Enqueuer, cleanupSchedule string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithSeconds()),
		queue:           queue,
		cleanupSchedule: cleanupSchedule,
		log:             log,
	}
}

// Start registers the jobs and starts the cron loop. It does nothing when
// events cannot be published.
func (s *Scheduler) Start() error {
	if s.queue == nil || !s.queue.Enabled() {
		s.log.Info().Msg("event queue disabled, scheduler not started")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cleanupSchedule, s.enqueueCleanup); err != nil {
		return fmt.Errorf("schedule cleanup %q: %w", s.cleanupSchedule, err)
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits up to timeout for a running job to finish.
func (s *Scheduler) Stop(timeout time.Duration) {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(timeout):
		s.log.Warn().Msg("scheduler job still running at shutdown")
	}
}

func (s *Scheduler) enqueueCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.Publish(ctx, events.Event{Type: events.TypeCleanup}); err != nil {
		s.log.Error().Err(err).Msg("enqueue cleanup failed")
		return
	}
	s.log.Debug().Msg("cleanup enqueued")
}
