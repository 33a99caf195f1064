package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateURL is returned when creating a source whose URL already exists.
var ErrDuplicateURL = errors.New("source URL already exists")

// SQLSourceRepository handles database operations for sources
type SQLSourceRepository struct {
	db *DB
}

var _ SourceRepository = (*SQLSourceRepository)(nil)

// NewSourceRepository creates a new source repository
func NewSourceRepository(db *DB) *SQLSourceRepository {
	return &SQLSourceRepository{db: db}
}

const sourceColumns = `id, type, title, url, content, summary, metadata, status,
	error_message, relevance_score, suggested_topic, is_selected, priority,
	selection_note, reviewed_at, scraped_at, created_at, updated_at`

func (r *SQLSourceRepository) Create(source *Source) (*Source, error) {
	if source.ID == "" {
		source.ID = uuid.NewString()
	}
	if source.Status == "" {
		source.Status = SourceStatusPending
	}

	existing, err := r.GetByURL(source.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing source: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateURL
	}

	now := time.Now().UTC()
	_, err = r.db.Exec(`
		INSERT INTO sources (
			id, type, title, url, content, summary, metadata, status,
			error_message, relevance_score, suggested_topic, is_selected,
			priority, selection_note, reviewed_at, scraped_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, source.ID, source.Type, source.Title, source.URL, source.Content,
		source.Summary, marshalJSON(source.Metadata), source.Status,
		source.ErrorMessage, source.RelevanceScore, source.SuggestedTopic,
		source.IsSelected, source.Priority, source.SelectionNote,
		source.ReviewedAt, source.ScrapedAt, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create source: %w", err)
	}

	return r.GetByID(source.ID)
}

func (r *SQLSourceRepository) GetByID(id string) (*Source, error) {
	row := r.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE id = ?", id)
	return r.scanSource(row)
}

func (r *SQLSourceRepository) GetByURL(url string) (*Source, error) {
	row := r.db.QueryRow("SELECT "+sourceColumns+" FROM sources WHERE url = ? LIMIT 1", url)
	return r.scanSource(row)
}

func (r *SQLSourceRepository) GetFiltered(filter SourceFilter, page, pageSize int) ([]Source, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, filter.Type)
	}

	clause := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRow("SELECT COUNT(*) FROM sources WHERE "+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sources: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(
		"SELECT "+sourceColumns+" FROM sources WHERE "+clause+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get sources: %w", err)
	}
	defer rows.Close()

	sources, err := r.scanSources(rows)
	if err != nil {
		return nil, 0, err
	}
	return sources, total, nil
}

func (r *SQLSourceRepository) GetUnreviewed(page, pageSize int) ([]Source, int, error) {
	var total int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM sources WHERE reviewed_at IS NULL AND status = ?",
		SourceStatusPending).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count unreviewed sources: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(
		"SELECT "+sourceColumns+" FROM sources"+
			" WHERE reviewed_at IS NULL AND status = ?"+
			" ORDER BY created_at ASC LIMIT ? OFFSET ?",
		SourceStatusPending, pageSize, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get unreviewed sources: %w", err)
	}
	defer rows.Close()

	sources, err := r.scanSources(rows)
	if err != nil {
		return nil, 0, err
	}
	return sources, total, nil
}

// GetSelectedForGeneration returns sources ready for article generation,
// highest priority first, oldest review first within a priority.
func (r *SQLSourceRepository) GetSelectedForGeneration(limit int) ([]Source, error) {
	rows, err := r.db.Query(
		"SELECT "+sourceColumns+" FROM sources"+
			" WHERE is_selected = 1 AND status = ?"+
			" ORDER BY priority DESC, reviewed_at ASC LIMIT ?",
		SourceStatusSelected, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get sources for generation: %w", err)
	}
	defer rows.Close()

	return r.scanSources(rows)
}

func (r *SQLSourceRepository) UpdateContent(id string, title, content, summary string, scrapedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET title = ?, content = ?, summary = ?, scraped_at = ?, updated_at = ?
		WHERE id = ?
	`, title, content, summary, scrapedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source content: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) UpdateEvaluation(id string, score int, topic string, reviewedAt time.Time) error {
	_, err := r.db.Exec(`
		UPDATE sources
		SET relevance_score = ?, suggested_topic = ?, reviewed_at = ?, updated_at = ?
		WHERE id = ?
	`, score, topic, reviewedAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source evaluation: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) UpdateSelection(id string, selected bool, note string) error {
	status := SourceStatusPending
	if selected {
		status = SourceStatusSelected
	}
	_, err := r.db.Exec(`
		UPDATE sources
		SET is_selected = ?, status = ?, selection_note = ?, updated_at = ?
		WHERE id = ?
	`, selected, status, note, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source selection: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) UpdatePriority(id string, priority int) error {
	_, err := r.db.Exec(
		"UPDATE sources SET priority = ?, updated_at = ? WHERE id = ?",
		priority, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source priority: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) UpdateStatus(id string, status SourceStatus, errorMessage string) error {
	_, err := r.db.Exec(
		"UPDATE sources SET status = ?, error_message = ?, updated_at = ? WHERE id = ?",
		status, errorMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update source status: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

func (r *SQLSourceRepository) Stats() (map[string]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM sources GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to get source stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *SQLSourceRepository) scanSource(row *sql.Row) (*Source, error) {
	var s Source
	var metadata string
	var score sql.NullInt64

	err := row.Scan(&s.ID, &s.Type, &s.Title, &s.URL, &s.Content, &s.Summary,
		&metadata, &s.Status, &s.ErrorMessage, &score, &s.SuggestedTopic,
		&s.IsSelected, &s.Priority, &s.SelectionNote, &s.ReviewedAt,
		&s.ScrapedAt, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}

	s.Metadata = unmarshalMap(metadata)
	if score.Valid {
		v := int(score.Int64)
		s.RelevanceScore = &v
	}
	return &s, nil
}

func (r *SQLSourceRepository) scanSources(rows *sql.Rows) ([]Source, error) {
	var sources []Source
	for rows.Next() {
		var s Source
		var metadata string
		var score sql.NullInt64

		err := rows.Scan(&s.ID, &s.Type, &s.Title, &s.URL, &s.Content, &s.Summary,
			&metadata, &s.Status, &s.ErrorMessage, &score, &s.SuggestedTopic,
			&s.IsSelected, &s.Priority, &s.SelectionNote, &s.ReviewedAt,
			&s.ScrapedAt, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}

		s.Metadata = unmarshalMap(metadata)
		if score.Valid {
			v := int(score.Int64)
			s.RelevanceScore = &v
		}
		sources = append(sources, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}
	return sources, nil
}
