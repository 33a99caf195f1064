package database

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewConnection(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func backdate(t *testing.T, db *DB, id string, age time.Duration) {
	t.Helper()
	_, err := db.Exec("UPDATE activity_logs SET created_at = ? WHERE id = ?",
		time.Now().UTC().Add(-age), id)
	if err != nil {
		t.Fatalf("failed to backdate entry: %v", err)
	}
}

func TestActivityLogCreateAndGetRecent(t *testing.T) {
	repo := NewActivityLogRepository(testDB(t))

	created, err := repo.Create(ActivityPipeline, ActivitySuccess,
		"Full pipeline completed successfully", map[string]any{"generated": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated entry ID")
	}

	logs, err := repo.GetRecent(ActivityFilter{Type: ActivityPipeline}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(logs))
	}
	if logs[0].Status != ActivitySuccess {
		t.Errorf("unexpected status %q", logs[0].Status)
	}
	if logs[0].Details["generated"] != float64(2) {
		t.Errorf("details not round-tripped, got %v", logs[0].Details)
	}
}

func TestMarkStaleRunningAsInterrupted(t *testing.T) {
	db := testDB(t)
	repo := NewActivityLogRepository(db)

	stale, err := repo.Create(ActivityPipeline, ActivityRunning, "Starting full pipeline", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	backdate(t, db, stale.ID, 45*time.Minute)

	fresh, err := repo.Create(ActivityPipeline, ActivityRunning, "Starting full pipeline", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.Create(ActivityScrape, ActivitySuccess, "Scrape completed", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := repo.MarkStaleRunningAsInterrupted(30 * time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stale entry marked, got %d", count)
	}

	interrupted, err := repo.GetRecent(ActivityFilter{Status: ActivityInterrupted}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(interrupted) != 1 || interrupted[0].ID != stale.ID {
		t.Fatalf("expected only the stale entry interrupted, got %+v", interrupted)
	}
	if interrupted[0].Details["original_message"] != "Starting full pipeline" {
		t.Errorf("expected original message preserved in details, got %v", interrupted[0].Details)
	}

	running, err := repo.GetRunningJobs(ActivityPipeline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(running) != 1 || running[0].ID != fresh.ID {
		t.Errorf("fresh running entry must be untouched, got %+v", running)
	}
}

func TestMarkStaleRunningAsInterruptedNoneStale(t *testing.T) {
	repo := NewActivityLogRepository(testDB(t))

	if _, err := repo.Create(ActivityPipeline, ActivityRunning, "Starting full pipeline", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := repo.MarkStaleRunningAsInterrupted(30 * time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no entries marked, got %d", count)
	}
}
