package database

import (
	"time"
)

// SourceFilter narrows source listing queries. Zero values mean "any".
type SourceFilter struct {
	Status SourceStatus
	Type   SourceType
}

type SourceRepository interface {
	Create(source *Source) (*Source, error)
	GetByID(id string) (*Source, error)
	GetByURL(url string) (*Source, error)
	GetFiltered(filter SourceFilter, page, pageSize int) ([]Source, int, error)
	GetUnreviewed(page, pageSize int) ([]Source, int, error)
	GetSelectedForGeneration(limit int) ([]Source, error)

	UpdateContent(id string, title, content, summary string, scrapedAt time.Time) error
	UpdateEvaluation(id string, score int, topic string, reviewedAt time.Time) error
	UpdateSelection(id string, selected bool, note string) error
	UpdatePriority(id string, priority int) error
	UpdateStatus(id string, status SourceStatus, errorMessage string) error
	Delete(id string) error

	Stats() (map[string]int, error)
}

// ArticleFilter narrows article listing queries. Zero values mean "any".
type ArticleFilter struct {
	Status  ArticleStatus
	Edition Edition
	Tag     string
}

type ArticleRepository interface {
	Create(article *Article) (*Article, error)
	GetByID(id string) (*Article, error)
	GetBySlug(slug string) (*Article, error)
	GetBySourceID(sourceID string) (*Article, error)
	GetFiltered(filter ArticleFilter, page, pageSize int) ([]Article, int, error)

	// Update snapshots the previous content into the version log before
	// applying the change.
	Update(id string, title, subtitle, content, metaDescription string, tags []string) (*Article, error)
	UpdateStatus(id string, status ArticleStatus) error
	UpdateHeroImage(id string, status HeroImageStatus, url string) error
	Delete(id string) error

	SlugExists(slug string) (bool, error)
	CountByEditionSince(since time.Time, edition Edition) (int, error)
	GetByHeroImageStatus(status HeroImageStatus, limit int) ([]Article, error)
	GetVersions(articleID string) ([]ArticleVersion, error)

	Stats() (map[string]int, error)
}

type PipelineStateRepository interface {
	Create(edition Edition) (*PipelineState, error)
	GetByID(id string) (*PipelineState, error)
	MarkStepCompleted(id string, step PipelineStep, result map[string]any) error
	MarkCompleted(id string) error
	MarkFailed(id string, errorMessage string) error
	MarkInterrupted(id string) error
	MarkStaleAsInterrupted(timeout time.Duration) (int, error)
	GetIncomplete(maxAge time.Duration) (*PipelineState, error)
	GetRecent(limit int) ([]PipelineState, error)
	CleanupOld(days int) (int, error)
}

// ActivityFilter narrows activity log queries. Zero values mean "any".
type ActivityFilter struct {
	Type   ActivityType
	Status ActivityStatus
	Since  *time.Time
}

type ActivityLogRepository interface {
	Create(activityType ActivityType, status ActivityStatus, message string, details map[string]any) (*ActivityLog, error)
	GetRecent(filter ActivityFilter, limit int) ([]ActivityLog, error)
	GetPaginated(filter ActivityFilter, page, pageSize int) ([]ActivityLog, int, error)
	GetRunningJobs(activityType ActivityType) ([]ActivityLog, error)
	MarkStaleRunningAsInterrupted(timeout time.Duration) (int, error)
	DeleteOld(days int) (int, error)
}
