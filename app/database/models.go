package database

import (
	"time"
)

type SourceType string

const (
	SourceTypeNews    SourceType = "news"
	SourceTypePaper   SourceType = "paper"
	SourceTypeArticle SourceType = "article"
)

type SourceStatus string

const (
	SourceStatusPending   SourceStatus = "pending"
	SourceStatusSelected  SourceStatus = "selected"
	SourceStatusProcessed SourceStatus = "processed"
	SourceStatusSkipped   SourceStatus = "skipped"
	SourceStatusFailed    SourceStatus = "failed"
)

// Source is a scraped candidate content unit awaiting evaluation and
// article generation. URL is globally unique; duplicates are rejected
// on ingestion.
type Source struct {
	ID             string
	Type           SourceType
	Title          string
	URL            string
	Content        string
	Summary        string
	Metadata       map[string]any
	Status         SourceStatus
	ErrorMessage   string
	RelevanceScore *int // 0-100, nil until evaluated
	SuggestedTopic string
	IsSelected     bool
	Priority       int // 0-5
	SelectionNote  string
	ReviewedAt     *time.Time
	ScrapedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "draft"
	ArticleStatusReview    ArticleStatus = "review"
	ArticleStatusPublished ArticleStatus = "published"
	ArticleStatusArchived  ArticleStatus = "archived"
)

type Edition string

const (
	EditionMorning Edition = "morning"
	EditionEvening Edition = "evening"
)

type HeroImageStatus string

const (
	HeroImageNone       HeroImageStatus = "none"
	HeroImagePending    HeroImageStatus = "pending"
	HeroImageGenerating HeroImageStatus = "generating"
	HeroImageCompleted  HeroImageStatus = "completed"
	HeroImageFailed     HeroImageStatus = "failed"
	HeroImageSkipped    HeroImageStatus = "skipped"
)

// Reference is a link surfaced inside generated article content.
type Reference struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Verified bool   `json:"verified"`
	FinalURL string `json:"final_url,omitempty"`
}

// Article is a generated blog post derived from one Source. At most one
// article exists per source.
type Article struct {
	ID                    string
	SourceID              string // empty for manually created articles
	Title                 string
	Subtitle              string
	Slug                  string
	Content               string
	Tags                  []string
	References            []Reference
	WordCount             int
	CharCount             int
	Status                ArticleStatus
	Edition               Edition
	MetaDescription       string
	HeroImageStatus       HeroImageStatus
	HeroImageURL          string
	LLMModel              string
	GenerationTimeSeconds float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
	PublishedAt           *time.Time
}

// ArticleVersion is an append-only snapshot of article content taken
// before each update.
type ArticleVersion struct {
	ID            string
	ArticleID     string
	VersionNumber int
	Title         string
	Content       string
	CreatedAt     time.Time
}

type PipelineStatus string

const (
	PipelineStatusRunning     PipelineStatus = "running"
	PipelineStatusCompleted   PipelineStatus = "completed"
	PipelineStatusFailed      PipelineStatus = "failed"
	PipelineStatusInterrupted PipelineStatus = "interrupted"
)

// PipelineStep names one of the three pipeline stages.
type PipelineStep string

const (
	StepScrape   PipelineStep = "scrape"
	StepEvaluate PipelineStep = "evaluate"
	StepGenerate PipelineStep = "generate"
)

// PipelineState is one record per orchestrator run, used to detect and
// resume interrupted pipelines after a crash or restart.
type PipelineState struct {
	ID                string
	Edition           Edition
	Status            PipelineStatus
	ScrapeCompleted   bool
	EvaluateCompleted bool
	GenerateCompleted bool
	ScrapeResult      map[string]any
	EvaluateResult    map[string]any
	GenerateResult    map[string]any
	ErrorMessage      string
	StartedAt         time.Time
	LastUpdatedAt     time.Time
	CompletedAt       *time.Time
}

type ActivityType string

const (
	ActivityScrape   ActivityType = "scrape"
	ActivityEvaluate ActivityType = "evaluate"
	ActivityGenerate ActivityType = "generate"
	ActivityPipeline ActivityType = "pipeline"
)

type ActivityStatus string

const (
	ActivityRunning     ActivityStatus = "running"
	ActivitySuccess     ActivityStatus = "success"
	ActivityError       ActivityStatus = "error"
	ActivityInterrupted ActivityStatus = "interrupted"
)

// ActivityLog is an append-only audit record of stage executions. It is
// the canonical signal for "did the scheduled run already happen" and
// for stale-run detection.
type ActivityLog struct {
	ID        string
	Type      ActivityType
	Status    ActivityStatus
	Message   string
	Details   map[string]any
	CreatedAt time.Time
}
