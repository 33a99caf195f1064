package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SQLArticleRepository handles database operations for articles and
// their version history.
type SQLArticleRepository struct {
	db *DB
}

var _ ArticleRepository = (*SQLArticleRepository)(nil)

// NewArticleRepository creates a new article repository
func NewArticleRepository(db *DB) *SQLArticleRepository {
	return &SQLArticleRepository{db: db}
}

const articleColumns = `id, source_id, title, subtitle, slug, content, tags,
	"references", word_count, char_count, status, edition, meta_description,
	hero_image_status, hero_image_url, llm_model, generation_time_seconds,
	created_at, updated_at, published_at`

func (r *SQLArticleRepository) Create(article *Article) (*Article, error) {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.Status == "" {
		article.Status = ArticleStatusDraft
	}
	if article.HeroImageStatus == "" {
		article.HeroImageStatus = HeroImageNone
	}

	now := time.Now().UTC()
	var sourceID any
	if article.SourceID != "" {
		sourceID = article.SourceID
	}

	_, err := r.db.Exec(`
		INSERT INTO articles (
			id, source_id, title, subtitle, slug, content, tags, "references",
			word_count, char_count, status, edition, meta_description,
			hero_image_status, hero_image_url, llm_model,
			generation_time_seconds, created_at, updated_at, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, article.ID, sourceID, article.Title, article.Subtitle, article.Slug,
		article.Content, marshalTags(article.Tags), marshalReferences(article.References),
		article.WordCount, article.CharCount, article.Status, article.Edition,
		article.MetaDescription, article.HeroImageStatus, article.HeroImageURL,
		article.LLMModel, article.GenerationTimeSeconds, now, now, article.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	return r.GetByID(article.ID)
}

func (r *SQLArticleRepository) GetByID(id string) (*Article, error) {
	row := r.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
	return r.scanArticle(row)
}

func (r *SQLArticleRepository) GetBySlug(slug string) (*Article, error) {
	row := r.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE slug = ? LIMIT 1", slug)
	return r.scanArticle(row)
}

func (r *SQLArticleRepository) GetBySourceID(sourceID string) (*Article, error) {
	row := r.db.QueryRow("SELECT "+articleColumns+" FROM articles WHERE source_id = ? LIMIT 1", sourceID)
	return r.scanArticle(row)
}

func (r *SQLArticleRepository) GetFiltered(filter ArticleFilter, page, pageSize int) ([]Article, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Edition != "" {
		where = append(where, "edition = ?")
		args = append(args, filter.Edition)
	}
	if filter.Tag != "" {
		// Tags are stored as a JSON array of strings.
		where = append(where, "tags LIKE ?")
		args = append(args, `%"`+filter.Tag+`"%`)
	}

	clause := strings.Join(where, " AND ")

	var total int
	err := r.db.QueryRow("SELECT COUNT(*) FROM articles WHERE "+clause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := r.db.Query(
		"SELECT "+articleColumns+" FROM articles WHERE "+clause+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get articles: %w", err)
	}
	defer rows.Close()

	articles, err := r.scanArticles(rows)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// Update snapshots the current content into article_versions, then
// applies the new values.
func (r *SQLArticleRepository) Update(id string, title, subtitle, content, metaDescription string, tags []string) (*Article, error) {
	current, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("article %s not found", id)
	}

	if err := r.snapshotVersion(current); err != nil {
		return nil, err
	}

	_, err = r.db.Exec(`
		UPDATE articles
		SET title = ?, subtitle = ?, content = ?, meta_description = ?,
		    tags = ?, word_count = ?, char_count = ?, updated_at = ?
		WHERE id = ?
	`, title, subtitle, content, metaDescription, marshalTags(tags),
		countWords(content), len(content), time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	return r.GetByID(id)
}

func (r *SQLArticleRepository) UpdateStatus(id string, status ArticleStatus) error {
	now := time.Now().UTC()
	var publishedAt any
	if status == ArticleStatusPublished {
		publishedAt = now
	}

	_, err := r.db.Exec(`
		UPDATE articles
		SET status = ?, updated_at = ?,
		    published_at = COALESCE(?, published_at)
		WHERE id = ?
	`, status, now, publishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update article status: %w", err)
	}
	return nil
}

func (r *SQLArticleRepository) UpdateHeroImage(id string, status HeroImageStatus, url string) error {
	_, err := r.db.Exec(`
		UPDATE articles
		SET hero_image_status = ?, hero_image_url = ?, updated_at = ?
		WHERE id = ?
	`, status, url, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update hero image: %w", err)
	}
	return nil
}

func (r *SQLArticleRepository) Delete(id string) error {
	_, err := r.db.Exec("DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}

func (r *SQLArticleRepository) SlugExists(slug string) (bool, error) {
	var one int
	err := r.db.QueryRow("SELECT 1 FROM articles WHERE slug = ? LIMIT 1", slug).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return true, nil
}

func (r *SQLArticleRepository) CountByEditionSince(since time.Time, edition Edition) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM articles WHERE edition = ? AND created_at >= ?",
		edition, since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count articles by edition: %w", err)
	}
	return count, nil
}

func (r *SQLArticleRepository) GetByHeroImageStatus(status HeroImageStatus, limit int) ([]Article, error) {
	rows, err := r.db.Query(
		"SELECT "+articleColumns+" FROM articles WHERE hero_image_status = ?"+
			" ORDER BY created_at ASC LIMIT ?", status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles by hero image status: %w", err)
	}
	defer rows.Close()

	return r.scanArticles(rows)
}

func (r *SQLArticleRepository) GetVersions(articleID string) ([]ArticleVersion, error) {
	rows, err := r.db.Query(`
		SELECT id, article_id, version_number, title, content, created_at
		FROM article_versions
		WHERE article_id = ?
		ORDER BY version_number DESC
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article versions: %w", err)
	}
	defer rows.Close()

	var versions []ArticleVersion
	for rows.Next() {
		var v ArticleVersion
		err := rows.Scan(&v.ID, &v.ArticleID, &v.VersionNumber, &v.Title,
			&v.Content, &v.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *SQLArticleRepository) Stats() (map[string]int, error) {
	rows, err := r.db.Query("SELECT status, COUNT(*) FROM articles GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to get article stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan article stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func (r *SQLArticleRepository) snapshotVersion(article *Article) error {
	var latest sql.NullInt64
	err := r.db.QueryRow(
		"SELECT MAX(version_number) FROM article_versions WHERE article_id = ?",
		article.ID).Scan(&latest)
	if err != nil {
		return fmt.Errorf("failed to get latest version number: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO article_versions (id, article_id, version_number, title, content, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), article.ID, latest.Int64+1, article.Title,
		article.Content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to snapshot article version: %w", err)
	}
	return nil
}

func (r *SQLArticleRepository) scanArticle(row *sql.Row) (*Article, error) {
	var a Article
	var sourceID sql.NullString
	var tags, references string

	err := row.Scan(&a.ID, &sourceID, &a.Title, &a.Subtitle, &a.Slug, &a.Content,
		&tags, &references, &a.WordCount, &a.CharCount, &a.Status, &a.Edition,
		&a.MetaDescription, &a.HeroImageStatus, &a.HeroImageURL, &a.LLMModel,
		&a.GenerationTimeSeconds, &a.CreatedAt, &a.UpdatedAt, &a.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	a.SourceID = sourceID.String
	a.Tags = unmarshalTags(tags)
	a.References = unmarshalReferences(references)
	return &a, nil
}

func (r *SQLArticleRepository) scanArticles(rows *sql.Rows) ([]Article, error) {
	var articles []Article
	for rows.Next() {
		var a Article
		var sourceID sql.NullString
		var tags, references string

		err := rows.Scan(&a.ID, &sourceID, &a.Title, &a.Subtitle, &a.Slug, &a.Content,
			&tags, &references, &a.WordCount, &a.CharCount, &a.Status, &a.Edition,
			&a.MetaDescription, &a.HeroImageStatus, &a.HeroImageURL, &a.LLMModel,
			&a.GenerationTimeSeconds, &a.CreatedAt, &a.UpdatedAt, &a.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}

		a.SourceID = sourceID.String
		a.Tags = unmarshalTags(tags)
		a.References = unmarshalReferences(references)
		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}
	return articles, nil
}

func countWords(text string) int {
	return len(strings.Fields(text))
}
