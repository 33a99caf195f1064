package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// Event is one progress update emitted during a streaming pipeline run.
type Event struct {
	Step    string `json:"step"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RunWithProgress executes the pipeline and streams progress events on
// the returned channel. The channel is closed when the run finishes.
// Stage failures produce error events but do not stop later stages.
func (p *Pipeline) RunWithProgress(ctx context.Context) <-chan Event {
	events := make(chan Event, 8)

	go func() {
		defer close(events)

		if !p.locker.TryLock() {
			events <- Event{Step: "error", Status: "error", Message: "Pipeline already running"}
			return
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
			events <- Event{Step: "scrape", Status: "completed", Message: "Scrape already completed, skipping"}
		} else {
			events <- Event{Step: "scrape", Status: "running", Message: "Scraping sources from RSS feeds and arXiv..."}
			result.Scrape = p.runScrape(ctx)
			p.completeStep(state.ID, database.StepScrape, result.Scrape.details())
			events <- stageEvent("scrape",
				fmt.Sprintf("Scraped %d RSS, %d arXiv", result.Scrape.RSSScraped, result.Scrape.ArxivScraped),
				result.Scrape, result.Scrape.Errors)
		}

		if state.EvaluateCompleted {
			events <- Event{Step: "evaluate", Status: "completed", Message: "Evaluation already completed, skipping"}
		} else {
			events <- Event{Step: "evaluate", Status: "running", Message: "Evaluating sources with AI..."}
			result.Evaluate = p.runEvaluate(ctx)
			p.completeStep(state.ID, database.StepEvaluate, result.Evaluate.details())
			events <- stageEvent("evaluate",
				fmt.Sprintf("Evaluated %d sources, %d selected", result.Evaluate.Evaluated, result.Evaluate.AutoSelected),
				result.Evaluate, result.Evaluate.Errors)
		}

		if state.GenerateCompleted {
			events <- Event{Step: "generate", Status: "completed", Message: "Generation already completed, skipping"}
		} else {
			events <- Event{Step: "generate", Status: "running", Message: "Generating articles from selected sources..."}
			result.Generate = p.runGenerate(ctx, state.Edition)
			p.completeStep(state.ID, database.StepGenerate, result.Generate.details())
			events <- stageEvent("generate",
				fmt.Sprintf("Generated %d articles", result.Generate.Generated),
				result.Generate, result.Generate.Errors)
		}

		if p.heroes != nil && p.opts.GenerateHeroImages {
			events <- Event{Step: "hero_images", Status: "running", Message: "Generating hero images..."}
			result.HeroImages = p.heroes.Run(ctx)
			events <- stageEvent("hero_images",
				fmt.Sprintf("Generated %d hero images", result.HeroImages.Generated),
				result.HeroImages, result.HeroImages.Errors)
		}

		result.Elapsed = time.Since(started).Seconds()
		p.finalize(ctx, state, result, time.Since(started))

		events <- Event{Step: "done", Status: "completed", Message: "Pipeline completed", Data: result}
	}()

	return events
}

func stageEvent(step, message string, data any, errs []string) Event {
	if len(errs) > 0 {
		return Event{
			Step:    step,
			Status:  "error",
			Message: fmt.Sprintf("%s (%d errors)", message, len(errs)),
			Data:    data,
		}
	}
	return Event{Step: step, Status: "completed", Message: message, Data: data}
}
