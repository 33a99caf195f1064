package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/generator"
)

const maxTitleLength = 300

// GenerateResult summarizes one generate stage run.
type GenerateResult struct {
	Generated       int              `json:"generated"`
	SkippedExisting int              `json:"skipped_existing"`
	Edition         database.Edition `json:"edition"`
	Errors          []string         `json:"errors,omitempty"`
}

func (r GenerateResult) details() map[string]any {
	return map[string]any{
		"generated":        r.Generated,
		"skipped_existing": r.SkippedExisting,
		"edition":          string(r.Edition),
		"errors":           capErrors(r.Errors),
	}
}

// runGenerate writes articles for selected sources, bounded by the
// remaining edition quota. Sources that already have an article are
// skipped without consuming quota or touching the LLM.
func (p *Pipeline) runGenerate(ctx context.Context, edition database.Edition) GenerateResult {
	slog.Info("Starting generate stage", "edition", edition)
	if _, err := p.activityRepo.Create(database.ActivityGenerate, database.ActivityRunning,
		"Starting article generation", nil); err != nil {
		slog.Error("Failed to record generation start", "error", err)
	}

	result := GenerateResult{Edition: edition}

	todayStart := localMidnight(time.Now(), p.opts.Location)
	alreadyGenerated, err := p.articleRepo.CountByEditionSince(todayStart, edition)
	if err != nil {
		msg := fmt.Sprintf("Error counting edition articles: %s", err)
		slog.Error("Generation stage failed to check quota", "error", err)
		result.Errors = append(result.Errors, msg)
		p.recordGenerateCompletion(result)
		return result
	}

	remaining := p.opts.MaxArticlesPerEdition - alreadyGenerated
	if remaining <= 0 {
		slog.Info("Edition limit reached",
			"edition", edition, "limit", p.opts.MaxArticlesPerEdition)
		p.recordGenerateCompletion(result)
		return result
	}

	sources, err := p.sourceRepo.GetSelectedForGeneration(remaining)
	if err != nil {
		msg := fmt.Sprintf("Error loading selected sources: %s", err)
		slog.Error("Generation stage failed to load sources", "error", err)
		result.Errors = append(result.Errors, msg)
		p.recordGenerateCompletion(result)
		return result
	}

	for i := range sources {
		source := &sources[i]

		existing, err := p.articleRepo.GetBySourceID(source.ID)
		if err != nil {
			msg := fmt.Sprintf("Error checking existing article for %s: %s", source.ID, err)
			result.Errors = append(result.Errors, msg)
			continue
		}
		if existing != nil {
			result.SkippedExisting++
			continue
		}

		if err := p.generateOne(ctx, source, edition); err != nil {
			msg := fmt.Sprintf("Error generating article for %s: %s", source.ID, err)
			slog.Error("Article generation failed",
				"source_id", source.ID, "title", source.Title, "error", err)
			result.Errors = append(result.Errors, msg)

			if updErr := p.sourceRepo.UpdateStatus(source.ID, database.SourceStatusFailed, err.Error()); updErr != nil {
				slog.Error("Failed to mark source failed", "source_id", source.ID, "error", updErr)
			}
			continue
		}
		result.Generated++
	}

	p.recordGenerateCompletion(result)
	slog.Info("Generate stage completed",
		"generated", result.Generated,
		"skipped_existing", result.SkippedExisting,
		"errors", len(result.Errors))
	return result
}

func (p *Pipeline) generateOne(ctx context.Context, source *database.Source, edition database.Edition) error {
	slog.Info("Generating article", "source_title", truncate(source.Title, 50))

	generated, err := p.writer.WriteArticle(ctx, source)
	if err != nil {
		return err
	}

	slug, err := generator.UniqueSlug(generated.Title, p.articleRepo.SlugExists)
	if err != nil {
		return fmt.Errorf("deriving slug: %w", err)
	}

	heroStatus := database.HeroImageNone
	if p.opts.GenerateHeroImages {
		heroStatus = database.HeroImagePending
	}

	article := &database.Article{
		SourceID:              source.ID,
		Title:                 truncate(generated.Title, maxTitleLength),
		Subtitle:              generated.Subtitle,
		Slug:                  slug,
		Content:               generated.Content,
		Tags:                  generated.Tags,
		References:            generated.References,
		WordCount:             generated.WordCount,
		CharCount:             generated.CharCount,
		Status:                database.ArticleStatusDraft,
		Edition:               edition,
		MetaDescription:       generated.MetaDescription,
		HeroImageStatus:       heroStatus,
		LLMModel:              generated.Model,
		GenerationTimeSeconds: generated.ElapsedSeconds,
	}

	if _, err := p.articleRepo.Create(article); err != nil {
		return fmt.Errorf("saving article: %w", err)
	}

	if err := p.sourceRepo.UpdateStatus(source.ID, database.SourceStatusProcessed, ""); err != nil {
		return fmt.Errorf("marking source processed: %w", err)
	}

	slog.Info("Generated article", "title", generated.Title, "slug", slug)
	return nil
}

func (p *Pipeline) recordGenerateCompletion(result GenerateResult) {
	status := database.ActivitySuccess
	if len(result.Errors) > 0 {
		status = database.ActivityError
	}
	if _, err := p.activityRepo.Create(database.ActivityGenerate, status,
		fmt.Sprintf("Generated %d articles (%s edition)", result.Generated, result.Edition),
		result.details()); err != nil {
		slog.Error("Failed to record generation completion", "error", err)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
