package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
	"github.com/inkwell-sh/inkwell/app/pipeline"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

type PipelineRunnerInterface interface {
	Run(ctx context.Context) (*pipeline.RunResult, error)
	RunWithProgress(ctx context.Context) <-chan pipeline.Event
	RunScrapeStage(ctx context.Context) pipeline.ScrapeResult
	RunEvaluateStage(ctx context.Context) pipeline.EvaluateResult
	RunGenerateStage(ctx context.Context, edition database.Edition) pipeline.GenerateResult
}

var _ PipelineRunnerInterface = (*pipeline.Pipeline)(nil)

type ScraperRegistryInterface interface {
	ForURL(url string) (scraper.Scraper, error)
}

var _ ScraperRegistryInterface = (*scraper.Registry)(nil)

type EvaluatorInterface interface {
	EvaluateSource(ctx context.Context, sourceType database.SourceType, title, url, content, summary string) (*generator.SourceEvaluation, error)
	EvaluateBatch(ctx context.Context, sources []generator.BatchSource) ([]generator.BatchResult, error)
}

var _ EvaluatorInterface = (*generator.Evaluator)(nil)

type WriterInterface interface {
	ImproveArticle(ctx context.Context, content, feedback string) (*generator.ParsedArticle, error)
}

var _ WriterInterface = (*generator.Writer)(nil)

type ValidatorInterface interface {
	ValidateAll(ctx context.Context, urls []string) []generator.ValidationResult
}

var _ ValidatorInterface = (*generator.ReferenceValidator)(nil)

// HandlerOptions carries the knobs handlers need beyond their
// collaborators.
type HandlerOptions struct {
	Version       string
	MinScore      int
	EvaluateDelay time.Duration
	MorningHour   int
	EveningHour   int
	Timezone      string
}

type Handler struct {
	sourceRepo   database.SourceRepository
	articleRepo  database.ArticleRepository
	stateRepo    database.PipelineStateRepository
	activityRepo database.ActivityLogRepository
	pipeline     PipelineRunnerInterface
	registry     ScraperRegistryInterface
	evaluator    EvaluatorInterface
	writer       WriterInterface
	validator    ValidatorInterface
	opts         HandlerOptions
}

func sourceJSON(s *database.Source) gin.H {
	return gin.H{
		"id":              s.ID,
		"type":            s.Type,
		"title":           s.Title,
		"url":             s.URL,
		"summary":         s.Summary,
		"metadata":        s.Metadata,
		"status":          s.Status,
		"error_message":   s.ErrorMessage,
		"relevance_score": s.RelevanceScore,
		"suggested_topic": s.SuggestedTopic,
		"is_selected":     s.IsSelected,
		"priority":        s.Priority,
		"selection_note":  s.SelectionNote,
		"reviewed_at":     s.ReviewedAt,
		"scraped_at":      s.ScrapedAt,
		"created_at":      s.CreatedAt,
		"updated_at":      s.UpdatedAt,
	}
}

func sourceDetailJSON(s *database.Source) gin.H {
	out := sourceJSON(s)
	out["content"] = s.Content
	return out
}

func articleJSON(a *database.Article) gin.H {
	return gin.H{
		"id":                a.ID,
		"source_id":         a.SourceID,
		"title":             a.Title,
		"subtitle":          a.Subtitle,
		"slug":              a.Slug,
		"tags":              a.Tags,
		"word_count":        a.WordCount,
		"char_count":        a.CharCount,
		"status":            a.Status,
		"edition":           a.Edition,
		"meta_description":  a.MetaDescription,
		"hero_image_status": a.HeroImageStatus,
		"hero_image_url":    a.HeroImageURL,
		"llm_model":         a.LLMModel,
		"created_at":        a.CreatedAt,
		"updated_at":        a.UpdatedAt,
		"published_at":      a.PublishedAt,
	}
}

func articleDetailJSON(a *database.Article) gin.H {
	out := articleJSON(a)
	out["content"] = a.Content
	out["references"] = a.References
	out["generation_time_seconds"] = a.GenerationTimeSeconds
	return out
}

func activityJSON(e *database.ActivityLog) gin.H {
	return gin.H{
		"id":         e.ID,
		"type":       e.Type,
		"status":     e.Status,
		"message":    e.Message,
		"details":    e.Details,
		"created_at": e.CreatedAt,
	}
}

func stateJSON(s *database.PipelineState) gin.H {
	return gin.H{
		"id":                 s.ID,
		"edition":            s.Edition,
		"status":             s.Status,
		"scrape_completed":   s.ScrapeCompleted,
		"evaluate_completed": s.EvaluateCompleted,
		"generate_completed": s.GenerateCompleted,
		"scrape_result":      s.ScrapeResult,
		"evaluate_result":    s.EvaluateResult,
		"generate_result":    s.GenerateResult,
		"error_message":      s.ErrorMessage,
		"started_at":         s.StartedAt,
		"last_updated_at":    s.LastUpdatedAt,
		"completed_at":       s.CompletedAt,
	}
}
