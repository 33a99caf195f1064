package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// evaluateBatchSize limits how many unreviewed sources one stage run
// scores.
const evaluateBatchSize = 20

// EvaluateResult summarizes one evaluate stage run.
type EvaluateResult struct {
	Evaluated    int      `json:"evaluated"`
	AutoSelected int      `json:"auto_selected"`
	Errors       []string `json:"errors,omitempty"`
}

func (r EvaluateResult) details() map[string]any {
	return map[string]any{
		"evaluated":     r.Evaluated,
		"auto_selected": r.AutoSelected,
		"errors":        capErrors(r.Errors),
	}
}

// runEvaluate scores unreviewed sources and auto-selects those at or
// above the configured threshold.
func (p *Pipeline) runEvaluate(ctx context.Context) EvaluateResult {
	slog.Info("Starting evaluate stage")
	if _, err := p.activityRepo.Create(database.ActivityEvaluate, database.ActivityRunning,
		"Starting source evaluation", nil); err != nil {
		slog.Error("Failed to record evaluation start", "error", err)
	}

	var result EvaluateResult

	sources, _, err := p.sourceRepo.GetUnreviewed(1, evaluateBatchSize)
	if err != nil {
		msg := fmt.Sprintf("Error loading unreviewed sources: %s", err)
		slog.Error("Evaluation stage failed to load sources", "error", err)
		result.Errors = append(result.Errors, msg)
		p.recordEvaluateCompletion(result)
		return result
	}

	for i := range sources {
		source := &sources[i]

		evaluation, err := p.evaluator.EvaluateSource(ctx,
			source.Type, source.Title, source.URL, source.Content, source.Summary)
		if err != nil {
			msg := fmt.Sprintf("Error evaluating source %s: %s", source.ID, err)
			slog.Error("Source evaluation failed", "source_id", source.ID, "error", err)
			result.Errors = append(result.Errors, msg)
			continue
		}

		if err := p.sourceRepo.UpdateEvaluation(source.ID,
			evaluation.RelevanceScore, evaluation.SuggestedTopic, time.Now()); err != nil {
			msg := fmt.Sprintf("Error saving evaluation for %s: %s", source.ID, err)
			slog.Error("Failed to save evaluation", "source_id", source.ID, "error", err)
			result.Errors = append(result.Errors, msg)
			continue
		}

		if evaluation.RelevanceScore >= p.opts.MinScore {
			note := fmt.Sprintf("Auto-selected: %s", evaluation.Reason)
			if err := p.sourceRepo.UpdateSelection(source.ID, true, note); err != nil {
				msg := fmt.Sprintf("Error auto-selecting %s: %s", source.ID, err)
				slog.Error("Failed to auto-select source", "source_id", source.ID, "error", err)
				result.Errors = append(result.Errors, msg)
				continue
			}
			result.AutoSelected++
			slog.Info("Source auto-selected",
				"source_id", source.ID, "score", evaluation.RelevanceScore)
		}

		result.Evaluated++
	}

	p.recordEvaluateCompletion(result)
	slog.Info("Evaluate stage completed",
		"evaluated", result.Evaluated,
		"auto_selected", result.AutoSelected,
		"errors", len(result.Errors))
	return result
}

func (p *Pipeline) recordEvaluateCompletion(result EvaluateResult) {
	status := database.ActivitySuccess
	if len(result.Errors) > 0 {
		status = database.ActivityError
	}
	if _, err := p.activityRepo.Create(database.ActivityEvaluate, status,
		fmt.Sprintf("Evaluated %d sources, %d auto-selected", result.Evaluated, result.AutoSelected),
		result.details()); err != nil {
		slog.Error("Failed to record evaluation completion", "error", err)
	}
}
