package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/scraper"
)

// ScrapeResult summarizes one scrape stage run.
type ScrapeResult struct {
	RSSScraped        int      `json:"rss_scraped"`
	ArxivScraped      int      `json:"arxiv_scraped"`
	DuplicatesSkipped int      `json:"duplicates_skipped"`
	Errors            []string `json:"errors,omitempty"`
}

func (r ScrapeResult) details() map[string]any {
	return map[string]any{
		"rss_scraped":        r.RSSScraped,
		"arxiv_scraped":      r.ArxivScraped,
		"duplicates_skipped": r.DuplicatesSkipped,
		"errors":             capErrors(r.Errors),
	}
}

// runScrape collects new sources from every configured RSS feed and
// arXiv category. A failing feed is recorded and skipped: one dead
// source must not starve the rest.
func (p *Pipeline) runScrape(ctx context.Context) ScrapeResult {
	slog.Info("Starting scrape stage")
	if _, err := p.activityRepo.Create(database.ActivityScrape, database.ActivityRunning,
		"Starting scrape job", nil); err != nil {
		slog.Error("Failed to record scrape start", "error", err)
	}

	var result ScrapeResult

	for _, feedConfig := range p.sources.RSSFeeds {
		slog.Info("Scraping RSS feed", "feed", feedConfig.Name)
		items, err := p.feeds.ScrapeFeed(ctx, feedConfig.URL, feedConfig.MaxItems)
		if err != nil {
			msg := fmt.Sprintf("Error scraping %s: %s", feedConfig.Name, err)
			slog.Error("Feed scrape failed", "feed", feedConfig.Name, "error", err)
			result.Errors = append(result.Errors, msg)
			continue
		}
		stored, dupes := p.storeScraped(items, map[string]any{"feed_name": feedConfig.Name})
		result.RSSScraped += stored
		result.DuplicatesSkipped += dupes
	}

	for _, category := range p.sources.ArxivCategories {
		slog.Info("Scraping arXiv category", "category", category)
		papers, err := p.papers.Search(ctx, category, p.opts.MaxPapersPerCategory)
		if err != nil {
			msg := fmt.Sprintf("Error scraping arXiv %s: %s", category, err)
			slog.Error("arXiv scrape failed", "category", category, "error", err)
			result.Errors = append(result.Errors, msg)
			continue
		}
		stored, dupes := p.storeScraped(papers, map[string]any{"category": category})
		result.ArxivScraped += stored
		result.DuplicatesSkipped += dupes
	}

	status := database.ActivitySuccess
	if len(result.Errors) > 0 {
		status = database.ActivityError
	}
	total := result.RSSScraped + result.ArxivScraped
	if _, err := p.activityRepo.Create(database.ActivityScrape, status,
		fmt.Sprintf("Scraped %d sources (%d RSS, %d arXiv)", total, result.RSSScraped, result.ArxivScraped),
		result.details()); err != nil {
		slog.Error("Failed to record scrape completion", "error", err)
	}

	slog.Info("Scrape stage completed",
		"rss", result.RSSScraped, "arxiv", result.ArxivScraped,
		"duplicates", result.DuplicatesSkipped, "errors", len(result.Errors))
	return result
}

// storeScraped persists items, counting URL duplicates separately.
func (p *Pipeline) storeScraped(items []scraper.ScrapedContent, extraMeta map[string]any) (stored, duplicates int) {
	for i := range items {
		item := &items[i]

		metadata := make(map[string]any, len(item.Metadata)+len(extraMeta)+2)
		for k, v := range item.Metadata {
			metadata[k] = v
		}
		for k, v := range extraMeta {
			metadata[k] = v
		}
		if item.Author != "" {
			metadata["author"] = item.Author
		}
		if item.PublishedAt != nil {
			metadata["published_at"] = item.PublishedAt.Format(time.RFC3339)
		}

		_, err := p.sourceRepo.Create(&database.Source{
			Type:     item.Type,
			Title:    item.Title,
			URL:      item.URL,
			Content:  item.Content,
			Summary:  item.Summary,
			Metadata: metadata,
			Status:   database.SourceStatusPending,
		})
		if errors.Is(err, database.ErrDuplicateURL) {
			duplicates++
			continue
		}
		if err != nil {
			slog.Error("Failed to store scraped source", "url", item.URL, "error", err)
			continue
		}
		stored++
	}
	return stored, duplicates
}
