package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/inkwell-sh/inkwell/app/cfg"
	"github.com/inkwell-sh/inkwell/app/pipeline"
)

// runTimeout bounds a single scheduled pipeline run.
const runTimeout = 30 * time.Minute

// PipelineRunner is the subset of pipeline behavior the scheduler drives.
type PipelineRunner interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
	CheckAndRunMissedSchedule(ctx context.Context, windows pipeline.CatchUpWindows) (*pipeline.RunResult, error)
}

// Scheduler triggers the pipeline at two fixed local hours each day and,
// on startup, catches up a run missed while the process was down.
type Scheduler struct {
	runner      PipelineRunner
	morningHour int
	eveningHour int
	windows     pipeline.CatchUpWindows
	location    *time.Location
	now         func() time.Time
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewScheduler(runner PipelineRunner) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		runner:      runner,
		morningHour: cfg.MorningHour,
		eveningHour: cfg.EveningHour,
		windows: pipeline.CatchUpWindows{
			MorningHour: cfg.MorningHour,
			EveningHour: cfg.EveningHour,
			WindowHours: cfg.CatchUpWindowHours,
			Location:    cfg.Location,
		},
		location: cfg.Location,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()

	slog.Info("Scheduler started", "morning_hour", s.morningHour, "evening_hour", s.eveningHour, "timezone", s.location.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	s.runCatchUp()

	for {
		next := nextTrigger(s.now(), s.morningHour, s.eveningHour, s.location)
		timer := time.NewTimer(next.Sub(s.now()))

		slog.Debug("Next scheduled pipeline run", "at", next.Format(time.RFC3339))

		select {
		case <-s.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runScheduled(next)
		}
	}
}

func (s *Scheduler) runCatchUp() {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	result, err := s.runner.CheckAndRunMissedSchedule(ctx, s.windows)
	if err != nil {
		slog.Error("Missed schedule catch-up failed", "error", err)
		return
	}
	if result != nil {
		slog.Info("Missed schedule caught up", "edition", result.Edition, "elapsed", result.Elapsed)
	}
}

func (s *Scheduler) runScheduled(at time.Time) {
	ctx, cancel := context.WithTimeout(s.ctx, runTimeout)
	defer cancel()

	slog.Info("Scheduled pipeline run triggered", "at", at.Format(time.RFC3339))

	result, err := s.runner.Run(ctx)
	if err != nil {
		slog.Error("Scheduled pipeline run failed", "error", err)
		return
	}
	if result.Skipped {
		slog.Warn("Scheduled pipeline run skipped", "reason", result.Reason)
		return
	}

	slog.Info("Scheduled pipeline run completed", "edition", result.Edition, "elapsed", result.Elapsed)
}

// nextTrigger returns the next occurrence of either trigger hour after now,
// evaluated in the given location.
func nextTrigger(now time.Time, morningHour, eveningHour int, loc *time.Location) time.Time {
	local := now.In(loc)

	var next time.Time
	for _, day := range []time.Time{local, local.AddDate(0, 0, 1)} {
		for _, hour := range []int{morningHour, eveningHour} {
			candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
			if !candidate.After(local) {
				continue
			}
			if next.IsZero() || candidate.Before(next) {
				next = candidate
			}
		}
	}
	return next
}
