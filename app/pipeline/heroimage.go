package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/images"
)

// heroImageBatchSize caps how many pending images one stage run
// renders.
const heroImageBatchSize = 10

// HeroImageResult summarizes one hero image stage run.
type HeroImageResult struct {
	Generated int      `json:"generated"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// HeroImageStage renders hero images for articles that requested one.
// The stage is best effort: a failed image marks the article and moves
// on, it never fails the pipeline.
type HeroImageStage struct {
	generator   images.Generator
	storage     images.Storage
	articleRepo database.ArticleRepository
}

func NewHeroImageStage(generator images.Generator, storage images.Storage, articleRepo database.ArticleRepository) *HeroImageStage {
	return &HeroImageStage{
		generator:   generator,
		storage:     storage,
		articleRepo: articleRepo,
	}
}

func (s *HeroImageStage) Run(ctx context.Context) HeroImageResult {
	var result HeroImageResult

	pending, err := s.articleRepo.GetByHeroImageStatus(database.HeroImagePending, heroImageBatchSize)
	if err != nil {
		slog.Error("Failed to load articles pending hero images", "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("Error loading pending articles: %s", err))
		return result
	}
	if len(pending) == 0 {
		return result
	}

	slog.Info("Starting hero image stage", "pending", len(pending))

	for i := range pending {
		article := &pending[i]
		if err := s.generateOne(ctx, article); err != nil {
			slog.Error("Hero image generation failed",
				"article_id", article.ID, "slug", article.Slug, "error", err)
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Error for %s: %s", article.Slug, err))

			if updErr := s.articleRepo.UpdateHeroImage(article.ID, database.HeroImageFailed, ""); updErr != nil {
				slog.Error("Failed to mark hero image failed", "article_id", article.ID, "error", updErr)
			}
			continue
		}
		result.Generated++
	}

	slog.Info("Hero image stage completed",
		"generated", result.Generated, "failed", result.Failed)
	return result
}

func (s *HeroImageStage) generateOne(ctx context.Context, article *database.Article) error {
	if err := s.articleRepo.UpdateHeroImage(article.ID, database.HeroImageGenerating, ""); err != nil {
		return fmt.Errorf("marking article generating: %w", err)
	}

	summary := article.MetaDescription
	if summary == "" {
		summary = article.Subtitle
	}

	data, mimeType, err := s.generator.GenerateHeroImage(ctx, article.Title, summary)
	if err != nil {
		return err
	}

	url, err := s.storage.Save(article.Slug, data, mimeType)
	if err != nil {
		return fmt.Errorf("storing image: %w", err)
	}

	if err := s.articleRepo.UpdateHeroImage(article.ID, database.HeroImageCompleted, url); err != nil {
		return fmt.Errorf("saving image URL: %w", err)
	}

	slog.Info("Hero image generated", "slug", article.Slug, "url", url)
	return nil
}
