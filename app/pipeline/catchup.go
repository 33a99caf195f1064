package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// CatchUpWindows describes when a missed scheduled run may still be
// executed: within windowHours after each scheduled hour.
type CatchUpWindows struct {
	MorningHour int
	EveningHour int
	WindowHours int
	Location    *time.Location
}

// missedEdition reports which edition falls inside its catch-up window
// at now, or false when outside both windows.
func (w CatchUpWindows) missedEdition(now time.Time) (database.Edition, time.Time, bool) {
	local := now.In(w.Location)
	hour := local.Hour()

	var scheduledHour int
	var edition database.Edition
	switch {
	case hour >= w.MorningHour && hour < w.MorningHour+w.WindowHours:
		edition = database.EditionMorning
		scheduledHour = w.MorningHour
	case hour >= w.EveningHour && hour < w.EveningHour+w.WindowHours:
		edition = database.EditionEvening
		scheduledHour = w.EveningHour
	default:
		return "", time.Time{}, false
	}

	scheduledAt := time.Date(local.Year(), local.Month(), local.Day(),
		scheduledHour, 0, 0, 0, w.Location)
	return edition, scheduledAt, true
}

// CheckAndRunMissedSchedule runs the pipeline when a scheduled slot was
// missed, typically because the process was down at trigger time. A run
// only happens inside the catch-up window and only when no successful,
// running or interrupted pipeline activity exists since the slot.
// Interrupted runs block because the resume path picks them up instead.
func (p *Pipeline) CheckAndRunMissedSchedule(ctx context.Context, windows CatchUpWindows) (*RunResult, error) {
	slog.Info("Checking for missed scheduled runs")
	if windows.Location == nil {
		windows.Location = p.opts.Location
	}

	edition, scheduledAt, inWindow := windows.missedEdition(time.Now())
	if !inWindow {
		slog.Debug("Not within catch-up window, skipping missed schedule check")
		return nil, nil
	}

	since := scheduledAt.Add(-time.Hour)
	recent, err := p.activityRepo.GetRecent(database.ActivityFilter{
		Type:  database.ActivityPipeline,
		Since: &since,
	}, 5)
	if err != nil {
		return nil, err
	}

	for _, entry := range recent {
		if entry.Status == database.ActivitySuccess ||
			entry.Status == database.ActivityRunning ||
			entry.Status == database.ActivityInterrupted {
			slog.Info("Pipeline already ran for this edition, skipping catch-up", "edition", edition)
			return nil, nil
		}
	}

	slog.Info("Missed edition pipeline detected, running catch-up", "edition", edition)
	if _, err := p.activityRepo.Create(database.ActivityPipeline, database.ActivityRunning,
		"Running missed "+string(edition)+" edition pipeline (catch-up)", nil); err != nil {
		slog.Error("Failed to record catch-up start", "error", err)
	}

	return p.Run(ctx)
}
