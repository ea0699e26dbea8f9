// AngelaMos | 2026
// scheduler.go

package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

const defaultTaskTimeout = 2 * time.Minute

// Task is a periodic background job. A zero Interval disables it.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	timeout   time.Duration
}

func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		timeout:   defaultTaskTimeout,
	}
}

// Add schedules t. Overlapping runs of the same task are skipped.
func (s *Scheduler) Add(t Task) error {
	if t.Interval <= 0 {
		s.logger.Info("job disabled", "job", t.Name)
		return nil
	}

	_, err := s.scheduler.Every(t.Interval).
		SingletonMode().
		WaitForSchedule().
		Do(func() { s.run(t) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", t.Name, err)
	}

	s.logger.Info("job scheduled", "job", t.Name, "interval", t.Interval.String())
	return nil
}

func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(t Task) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		s.logger.Error("job failed",
			"job", t.Name,
			"duration", time.Since(start).String(),
			"error", err,
		)
		return
	}

	s.logger.Debug("job finished", "job", t.Name, "duration", time.Since(start).String())
}
