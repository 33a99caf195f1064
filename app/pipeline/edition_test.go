package pipeline

import (
	"testing"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("failed to load timezone: %v", err)
	}
	return loc
}

func TestCurrentEdition(t *testing.T) {
	loc := seoul(t)

	tests := []struct {
		name string
		time time.Time
		want database.Edition
	}{
		{"early morning", time.Date(2026, 8, 31, 8, 0, 0, 0, loc), database.EditionMorning},
		{"just before cutover", time.Date(2026, 8, 31, 13, 59, 0, 0, loc), database.EditionMorning},
		{"at cutover", time.Date(2026, 8, 31, 14, 0, 0, 0, loc), database.EditionEvening},
		{"evening", time.Date(2026, 8, 31, 20, 0, 0, 0, loc), database.EditionEvening},
		{"midnight", time.Date(2026, 8, 31, 0, 0, 0, 0, loc), database.EditionMorning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CurrentEdition(tt.time, loc); got != tt.want {
				t.Errorf("CurrentEdition(%v) = %q, want %q", tt.time, got, tt.want)
			}
		})
	}
}

func TestCurrentEditionUsesLocalTime(t *testing.T) {
	loc := seoul(t)
	// 23:00 UTC is 08:00 next day in Seoul: morning there, evening in UTC.
	utcEvening := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)

	if got := CurrentEdition(utcEvening, loc); got != database.EditionMorning {
		t.Errorf("expected morning edition in Seoul, got %q", got)
	}
	if got := CurrentEdition(utcEvening, time.UTC); got != database.EditionEvening {
		t.Errorf("expected evening edition in UTC, got %q", got)
	}
}

func TestLocalMidnight(t *testing.T) {
	loc := seoul(t)
	now := time.Date(2026, 8, 31, 1, 30, 0, 0, time.UTC) // 10:30 in Seoul

	midnight := localMidnight(now, loc)
	want := time.Date(2026, 8, 31, 0, 0, 0, 0, loc)
	if !midnight.Equal(want) {
		t.Errorf("localMidnight = %v, want %v", midnight, want)
	}
}

func TestMemoryLocker(t *testing.T) {
	locker := NewMemoryLocker()

	if !locker.TryLock() {
		t.Fatal("first TryLock must succeed")
	}
	if locker.TryLock() {
		t.Fatal("second TryLock must fail while held")
	}
	locker.Unlock()
	if !locker.TryLock() {
		t.Fatal("TryLock must succeed after Unlock")
	}
}

func TestMissedEditionWindows(t *testing.T) {
	loc := seoul(t)
	windows := CatchUpWindows{MorningHour: 8, EveningHour: 20, WindowHours: 2, Location: loc}

	tests := []struct {
		name     string
		time     time.Time
		want     database.Edition
		inWindow bool
	}{
		{"morning window start", time.Date(2026, 8, 31, 8, 0, 0, 0, loc), database.EditionMorning, true},
		{"morning window end", time.Date(2026, 8, 31, 9, 59, 0, 0, loc), database.EditionMorning, true},
		{"after morning window", time.Date(2026, 8, 31, 10, 0, 0, 0, loc), "", false},
		{"evening window", time.Date(2026, 8, 31, 21, 0, 0, 0, loc), database.EditionEvening, true},
		{"late night", time.Date(2026, 8, 31, 23, 0, 0, 0, loc), "", false},
		{"midday", time.Date(2026, 8, 31, 13, 0, 0, 0, loc), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edition, scheduledAt, inWindow := windows.missedEdition(tt.time)
			if inWindow != tt.inWindow {
				t.Fatalf("inWindow = %v, want %v", inWindow, tt.inWindow)
			}
			if !tt.inWindow {
				return
			}
			if edition != tt.want {
				t.Errorf("edition = %q, want %q", edition, tt.want)
			}
			if scheduledAt.Minute() != 0 || scheduledAt.Day() != tt.time.Day() {
				t.Errorf("unexpected scheduled time %v", scheduledAt)
			}
		})
	}
}
