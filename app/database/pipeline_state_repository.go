package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLPipelineStateRepository tracks orchestrator runs for crash
// detection and resumption.
type SQLPipelineStateRepository struct {
	db *DB
}

var _ PipelineStateRepository = (*SQLPipelineStateRepository)(nil)

// NewPipelineStateRepository creates a new pipeline state repository
func NewPipelineStateRepository(db *DB) *SQLPipelineStateRepository {
	return &SQLPipelineStateRepository{db: db}
}

const pipelineStateColumns = `id, edition, status, scrape_completed,
	evaluate_completed, generate_completed, scrape_result, evaluate_result,
	generate_result, error_message, started_at, last_updated_at, completed_at`

func (r *SQLPipelineStateRepository) Create(edition Edition) (*PipelineState, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	_, err := r.db.Exec(`
		INSERT INTO pipeline_state (
			id, edition, status, scrape_completed, evaluate_completed,
			generate_completed, scrape_result, evaluate_result,
			generate_result, started_at, last_updated_at
		) VALUES (?, ?, ?, 0, 0, 0, '{}', '{}', '{}', ?, ?)
	`, id, edition, PipelineStatusRunning, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline state: %w", err)
	}

	return r.GetByID(id)
}

func (r *SQLPipelineStateRepository) GetByID(id string) (*PipelineState, error) {
	row := r.db.QueryRow("SELECT "+pipelineStateColumns+" FROM pipeline_state WHERE id = ?", id)
	return r.scanState(row)
}

// MarkStepCompleted records a stage result. Idempotent per step: a
// repeated call overwrites the step's flag, result, and timestamp.
func (r *SQLPipelineStateRepository) MarkStepCompleted(id string, step PipelineStep, result map[string]any) error {
	var column string
	switch step {
	case StepScrape:
		column = "scrape"
	case StepEvaluate:
		column = "evaluate"
	case StepGenerate:
		column = "generate"
	default:
		return fmt.Errorf("unknown pipeline step: %s", step)
	}

	_, err := r.db.Exec(
		"UPDATE pipeline_state SET "+column+"_completed = 1, "+column+"_result = ?, last_updated_at = ? WHERE id = ?",
		marshalJSON(result), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark step %s completed: %w", step, err)
	}
	return nil
}

func (r *SQLPipelineStateRepository) MarkCompleted(id string) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(`
		UPDATE pipeline_state
		SET status = ?, completed_at = ?, last_updated_at = ?
		WHERE id = ?
	`, PipelineStatusCompleted, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark pipeline completed: %w", err)
	}
	return nil
}

func (r *SQLPipelineStateRepository) MarkFailed(id string, errorMessage string) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_state
		SET status = ?, error_message = ?, last_updated_at = ?
		WHERE id = ?
	`, PipelineStatusFailed, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark pipeline failed: %w", err)
	}
	return nil
}

func (r *SQLPipelineStateRepository) MarkInterrupted(id string) error {
	_, err := r.db.Exec(`
		UPDATE pipeline_state
		SET status = ?, last_updated_at = ?
		WHERE id = ?
	`, PipelineStatusInterrupted, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark pipeline interrupted: %w", err)
	}
	return nil
}

// MarkStaleAsInterrupted reclassifies running records whose last update
// is older than the timeout. This is how crashed runs are detected; the
// crashed process itself never writes anything.
func (r *SQLPipelineStateRepository) MarkStaleAsInterrupted(timeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-timeout)

	result, err := r.db.Exec(`
		UPDATE pipeline_state
		SET status = ?, last_updated_at = ?
		WHERE status = ? AND last_updated_at < ?
	`, PipelineStatusInterrupted, time.Now().UTC(), PipelineStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to mark stale pipelines: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count stale pipelines: %w", err)
	}
	return int(affected), nil
}

// GetIncomplete returns the most recent resumable run: running or
// interrupted, started within maxAge.
func (r *SQLPipelineStateRepository) GetIncomplete(maxAge time.Duration) (*PipelineState, error) {
	cutoff := time.Now().UTC().Add(-maxAge)

	row := r.db.QueryRow(
		"SELECT "+pipelineStateColumns+" FROM pipeline_state"+
			" WHERE status IN (?, ?) AND started_at >= ?"+
			" ORDER BY started_at DESC LIMIT 1",
		PipelineStatusRunning, PipelineStatusInterrupted, cutoff)
	return r.scanState(row)
}

func (r *SQLPipelineStateRepository) GetRecent(limit int) ([]PipelineState, error) {
	rows, err := r.db.Query(
		"SELECT "+pipelineStateColumns+" FROM pipeline_state"+
			" ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent pipeline states: %w", err)
	}
	defer rows.Close()

	var states []PipelineState
	for rows.Next() {
		state, err := r.scanStateRow(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, rows.Err()
}

func (r *SQLPipelineStateRepository) CleanupOld(days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := r.db.Exec("DELETE FROM pipeline_state WHERE started_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old pipeline states: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count cleaned pipeline states: %w", err)
	}
	return int(affected), nil
}

func (r *SQLPipelineStateRepository) scanState(row *sql.Row) (*PipelineState, error) {
	var s PipelineState
	var scrapeResult, evaluateResult, generateResult string

	err := row.Scan(&s.ID, &s.Edition, &s.Status, &s.ScrapeCompleted,
		&s.EvaluateCompleted, &s.GenerateCompleted, &scrapeResult,
		&evaluateResult, &generateResult, &s.ErrorMessage, &s.StartedAt,
		&s.LastUpdatedAt, &s.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pipeline state: %w", err)
	}

	s.ScrapeResult = unmarshalMap(scrapeResult)
	s.EvaluateResult = unmarshalMap(evaluateResult)
	s.GenerateResult = unmarshalMap(generateResult)
	return &s, nil
}

func (r *SQLPipelineStateRepository) scanStateRow(rows *sql.Rows) (*PipelineState, error) {
	var s PipelineState
	var scrapeResult, evaluateResult, generateResult string

	err := rows.Scan(&s.ID, &s.Edition, &s.Status, &s.ScrapeCompleted,
		&s.EvaluateCompleted, &s.GenerateCompleted, &scrapeResult,
		&evaluateResult, &generateResult, &s.ErrorMessage, &s.StartedAt,
		&s.LastUpdatedAt, &s.CompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan pipeline state row: %w", err)
	}

	s.ScrapeResult = unmarshalMap(scrapeResult)
	s.EvaluateResult = unmarshalMap(evaluateResult)
	s.GenerateResult = unmarshalMap(generateResult)
	return &s, nil
}
