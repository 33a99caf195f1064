package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

// maxLoggedErrors caps the error list stored in activity log details.
const maxLoggedErrors = 5

// resumeMaxAge bounds how old an interrupted run may be and still get
// resumed instead of starting fresh.
const resumeMaxAge = 6 * time.Hour

// FeedScraper pulls items from one RSS feed.
type FeedScraper interface {
	ScrapeFeed(ctx context.Context, feedURL string, maxItems int) ([]scraper.ScrapedContent, error)
}

// PaperScraper searches an arXiv category for recent papers.
type PaperScraper interface {
	Search(ctx context.Context, category string, maxResults int) ([]scraper.ScrapedContent, error)
}

// SourceEvaluator scores one source for article potential.
type SourceEvaluator interface {
	EvaluateSource(ctx context.Context, sourceType database.SourceType, title, url, content, summary string) (*generator.SourceEvaluation, error)
}

// ArticleWriter turns a selected source into a finished article.
type ArticleWriter interface {
	WriteArticle(ctx context.Context, source *database.Source) (*generator.GeneratedArticle, error)
}

// Notifier receives pipeline lifecycle events.
type Notifier interface {
	PipelineStarted(ctx context.Context, edition string)
	PipelineCompleted(ctx context.Context, edition string, scraped, evaluated, generated int, elapsed time.Duration)
	PipelineError(ctx context.Context, step string, errs []string)
	PipelineResumed(ctx context.Context, edition, reason string)
	StaleJobsCleaned(ctx context.Context, count int)
}

// Options carries the tunables the pipeline needs from configuration.
type Options struct {
	MinScore              int
	MaxArticlesPerEdition int
	MaxPapersPerCategory  int
	StaleRunTimeout       time.Duration
	GenerateHeroImages    bool
	Location              *time.Location
}

// Pipeline orchestrates the scrape, evaluate and generate stages.
type Pipeline struct {
	opts    Options
	sources *scraper.SourcesConfig

	feeds     FeedScraper
	papers    PaperScraper
	evaluator SourceEvaluator
	writer    ArticleWriter
	heroes    *HeroImageStage
	notifier  Notifier
	locker    Locker

	sourceRepo   database.SourceRepository
	articleRepo  database.ArticleRepository
	stateRepo    database.PipelineStateRepository
	activityRepo database.ActivityLogRepository
}

func NewPipeline(
	opts Options,
	sources *scraper.SourcesConfig,
	feeds FeedScraper,
	papers PaperScraper,
	evaluator SourceEvaluator,
	writer ArticleWriter,
	heroes *HeroImageStage,
	notifier Notifier,
	locker Locker,
	sourceRepo database.SourceRepository,
	articleRepo database.ArticleRepository,
	stateRepo database.PipelineStateRepository,
	activityRepo database.ActivityLogRepository,
) *Pipeline {
	if opts.MaxPapersPerCategory <= 0 {
		opts.MaxPapersPerCategory = 10
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Pipeline{
		opts:         opts,
		sources:      sources,
		feeds:        feeds,
		papers:       papers,
		evaluator:    evaluator,
		writer:       writer,
		heroes:       heroes,
		notifier:     notifier,
		locker:       locker,
		sourceRepo:   sourceRepo,
		articleRepo:  articleRepo,
		stateRepo:    stateRepo,
		activityRepo: activityRepo,
	}
}

// RunResult aggregates the outcome of one pipeline run.
type RunResult struct {
	Skipped    bool             `json:"skipped,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	StateID    string           `json:"state_id,omitempty"`
	Edition    database.Edition `json:"edition,omitempty"`
	Scrape     ScrapeResult     `json:"scrape"`
	Evaluate   EvaluateResult   `json:"evaluate"`
	Generate   GenerateResult   `json:"generate"`
	HeroImages HeroImageResult  `json:"hero_images"`
	Elapsed    float64          `json:"elapsed_seconds"`
}

func (r *RunResult) errorCount() int {
	return len(r.Scrape.Errors) + len(r.Evaluate.Errors) + len(r.Generate.Errors)
}

// Run executes the full pipeline. A second invocation while one is in
// flight returns a skipped result instead of blocking or erroring.
func (p *Pipeline) Run(ctx context.Context) (*RunResult, error) {
	if !p.locker.TryLock() {
		slog.Warn("Pipeline already running, skipping this execution")
		return &RunResult{Skipped: true, Reason: "Pipeline already running"}, nil
	}
	defer p.locker.Unlock()

	started := time.Now()
	p.cleanupStaleRuns(ctx)

	state, resumed := p.openState(ctx)
	result := &RunResult{Edition: state.Edition, StateID: state.ID}

	if _, err := p.activityRepo.Create(database.ActivityPipeline, database.ActivityRunning,
		"Starting full pipeline (scrape, evaluate, generate)", nil); err != nil {
		slog.Error("Failed to record pipeline start", "error", err)
	}
	if !resumed {
		p.notifier.PipelineStarted(ctx, string(state.Edition))
	}

	if state.ScrapeCompleted {
		slog.Info("Scrape step already completed, skipping", "state_id", state.ID)
	} else {
		result.Scrape = p.runScrape(ctx)
		p.completeStep(state.ID, database.StepScrape, result.Scrape.details())
	}

	if state.EvaluateCompleted {
		slog.Info("Evaluate step already completed, skipping", "state_id", state.ID)
	} else {
		result.Evaluate = p.runEvaluate(ctx)
		p.completeStep(state.ID, database.StepEvaluate, result.Evaluate.details())
	}

	if state.GenerateCompleted {
		slog.Info("Generate step already completed, skipping", "state_id", state.ID)
	} else {
		result.Generate = p.runGenerate(ctx, state.Edition)
		p.completeStep(state.ID, database.StepGenerate, result.Generate.details())
	}

	if p.heroes != nil && p.opts.GenerateHeroImages {
		result.HeroImages = p.heroes.Run(ctx)
	}

	result.Elapsed = time.Since(started).Seconds()
	p.finalize(ctx, state, result, time.Since(started))

	return result, nil
}

func (p *Pipeline) cleanupStaleRuns(ctx context.Context) {
	total := 0
	if n, err := p.activityRepo.MarkStaleRunningAsInterrupted(p.opts.StaleRunTimeout); err != nil {
		slog.Error("Failed to mark stale activity logs", "error", err)
	} else {
		total += n
	}
	if n, err := p.stateRepo.MarkStaleAsInterrupted(p.opts.StaleRunTimeout); err != nil {
		slog.Error("Failed to mark stale pipeline states", "error", err)
	} else {
		total += n
	}
	if total > 0 {
		slog.Info("Marked stale runs as interrupted", "count", total)
		p.notifier.StaleJobsCleaned(ctx, total)
	}
}

// openState resumes a recent interrupted run when one exists, otherwise
// starts a fresh pipeline state record.
func (p *Pipeline) openState(ctx context.Context) (*database.PipelineState, bool) {
	if incomplete, err := p.stateRepo.GetIncomplete(resumeMaxAge); err != nil {
		slog.Error("Failed to check for incomplete pipeline runs", "error", err)
	} else if incomplete != nil && incomplete.Status == database.PipelineStatusInterrupted {
		slog.Info("Resuming interrupted pipeline run",
			"state_id", incomplete.ID,
			"edition", incomplete.Edition,
			"scrape_done", incomplete.ScrapeCompleted,
			"evaluate_done", incomplete.EvaluateCompleted,
			"generate_done", incomplete.GenerateCompleted)
		p.notifier.PipelineResumed(ctx, string(incomplete.Edition), "previous run was interrupted")
		return incomplete, true
	}

	edition := CurrentEdition(time.Now(), p.opts.Location)
	state, err := p.stateRepo.Create(edition)
	if err != nil {
		slog.Error("Failed to create pipeline state, continuing without persistence", "error", err)
		return &database.PipelineState{Edition: edition, Status: database.PipelineStatusRunning}, false
	}
	return state, false
}

func (p *Pipeline) completeStep(stateID string, step database.PipelineStep, details map[string]any) {
	if stateID == "" {
		return
	}
	if err := p.stateRepo.MarkStepCompleted(stateID, step, details); err != nil {
		slog.Error("Failed to persist step completion", "step", step, "error", err)
	}
}

func (p *Pipeline) finalize(ctx context.Context, state *database.PipelineState, result *RunResult, elapsed time.Duration) {
	scraped := result.Scrape.RSSScraped + result.Scrape.ArxivScraped
	details := map[string]any{
		"scraped":   scraped,
		"evaluated": result.Evaluate.Evaluated,
		"generated": result.Generate.Generated,
	}

	// Item-level failures stay inside the stage details. The run itself
	// completed, so the state and the activity entry say success, and the
	// next catch-up check treats the slot as served.
	message := "Full pipeline completed successfully"
	if n := result.errorCount(); n > 0 {
		message = fmt.Sprintf("Full pipeline completed with %d item errors", n)
		details["errors"] = capErrors(collectErrors(result))
		slog.Warn("Pipeline items failed during run",
			"errors", n, "elapsed", elapsed.Round(time.Second))
	}

	if state.ID != "" {
		if err := p.stateRepo.MarkCompleted(state.ID); err != nil {
			slog.Error("Failed to mark pipeline state completed", "error", err)
		}
	}
	if _, err := p.activityRepo.Create(database.ActivityPipeline, database.ActivitySuccess,
		message, details); err != nil {
		slog.Error("Failed to record pipeline completion", "error", err)
	}
	p.notifier.PipelineCompleted(ctx, string(state.Edition),
		scraped, result.Evaluate.Evaluated, result.Generate.Generated, elapsed)
	slog.Info("Full pipeline completed",
		"edition", state.Edition,
		"scraped", scraped,
		"evaluated", result.Evaluate.Evaluated,
		"generated", result.Generate.Generated,
		"elapsed", elapsed.Round(time.Second))
}

func collectErrors(result *RunResult) []string {
	var errs []string
	errs = append(errs, result.Scrape.Errors...)
	errs = append(errs, result.Evaluate.Errors...)
	errs = append(errs, result.Generate.Errors...)
	return errs
}

func capErrors(errs []string) []string {
	if len(errs) > maxLoggedErrors {
		return errs[:maxLoggedErrors]
	}
	return errs
}
