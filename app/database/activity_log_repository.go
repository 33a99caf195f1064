package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLActivityLogRepository handles the append-only activity audit trail.
type SQLActivityLogRepository struct {
	db *DB
}

var _ ActivityLogRepository = (*SQLActivityLogRepository)(nil)

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *DB) *SQLActivityLogRepository {
	return &SQLActivityLogRepository{db: db}
}

const activityColumns = `id, type, status, message, details, created_at`

func (r *SQLActivityLogRepository) Create(activityType ActivityType, status ActivityStatus, message string, details map[string]any) (*ActivityLog, error) {
	entry := &ActivityLog{
		ID:        uuid.NewString(),
		Type:      activityType,
		Status:    status,
		Message:   message,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}

	_, err := r.db.Exec(`
		INSERT INTO activity_logs (id, type, status, message, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Type, entry.Status, entry.Message,
		marshalJSON(entry.Details), entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create activity log: %w", err)
	}

	return entry, nil
}

func (r *SQLActivityLogRepository) GetRecent(filter ActivityFilter, limit int) ([]ActivityLog, error) {
	clause, args := buildActivityFilter(filter)

	rows, err := r.db.Query(
		"SELECT "+activityColumns+" FROM activity_logs WHERE "+clause+
			" ORDER BY created_at DESC LIMIT ?",
		append(args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent activity logs: %w", err)
	}
	defer rows.Close()

	return r.scanLogs(rows)
}

func (r *SQLActivityLogRepository) GetPaginated(filter ActivityFilter, page, pageSize int) ([]ActivityLog, int, error) {
	clause, args := buildActivityFilter(filter)

	var total int
	err := r.db.QueryRow("SELECT COUNT(*) FROM activity_logs WHERE "+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activity logs: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(
		"SELECT "+activityColumns+" FROM activity_logs WHERE "+clause+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get activity logs: %w", err)
	}
	defer rows.Close()

	logs, err := r.scanLogs(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *SQLActivityLogRepository) GetRunningJobs(activityType ActivityType) ([]ActivityLog, error) {
	return r.GetRecent(ActivityFilter{Type: activityType, Status: ActivityRunning}, 50)
}

// MarkStaleRunningAsInterrupted flips running entries older than the
// timeout to interrupted, annotating the reason. Called at the start of
// every orchestrator run so dashboards never show a permanently running
// ghost entry from a killed process.
func (r *SQLActivityLogRepository) MarkStaleRunningAsInterrupted(timeout time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-timeout)

	rows, err := r.db.Query(
		"SELECT id, message FROM activity_logs WHERE status = ? AND created_at < ?",
		ActivityRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to find stale running logs: %w", err)
	}
	defer rows.Close()

	type staleLog struct {
		id      string
		message string
	}
	var stale []staleLog
	for rows.Next() {
		var s staleLog
		if err := rows.Scan(&s.id, &s.message); err != nil {
			return 0, fmt.Errorf("failed to scan stale log: %w", err)
		}
		stale = append(stale, s)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating stale logs: %w", err)
	}

	count := 0
	for _, s := range stale {
		details := map[string]any{
			"reason":           "Marked as interrupted - job did not complete within timeout",
			"original_message": s.message,
		}
		_, err := r.db.Exec(
			"UPDATE activity_logs SET status = ?, details = ? WHERE id = ?",
			ActivityInterrupted, marshalJSON(details), s.id)
		if err != nil {
			return count, fmt.Errorf("failed to mark log %s interrupted: %w", s.id, err)
		}
		count++
	}

	return count, nil
}

func (r *SQLActivityLogRepository) DeleteOld(days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	result, err := r.db.Exec("DELETE FROM activity_logs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old activity logs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted logs: %w", err)
	}
	return int(affected), nil
}

func buildActivityFilter(filter ActivityFilter) (string, []any) {
	where := []string{"1=1"}
	args := []any{}

	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	return strings.Join(where, " AND "), args
}

func (r *SQLActivityLogRepository) scanLogs(rows *sql.Rows) ([]ActivityLog, error) {
	var logs []ActivityLog
	for rows.Next() {
		var l ActivityLog
		var details string

		err := rows.Scan(&l.ID, &l.Type, &l.Status, &l.Message, &details, &l.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity log row: %w", err)
		}

		l.Details = unmarshalMap(details)
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity log rows: %w", err)
	}
	return logs, nil
}
