package scraper

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/inkwell-sh/inkwell/app/database"
)

var feedURLRe = regexp.MustCompile(`(?i)(/feed/?$|/rss/?$|\.rss$|\.xml$|/atom/?$)`)

// RSSScraper pulls news items from RSS and Atom feeds.
type RSSScraper struct {
	fetcher      *Fetcher
	gofeedParser *gofeed.Parser
}

func NewRSSScraper(fetcher *Fetcher) *RSSScraper {
	return &RSSScraper{
		fetcher:      fetcher,
		gofeedParser: gofeed.NewParser(),
	}
}

func (s *RSSScraper) CanHandle(url string) bool {
	return feedURLRe.MatchString(url)
}

// Scrape treats the URL as a feed and returns its first item.
func (s *RSSScraper) Scrape(ctx context.Context, url string) (*ScrapedContent, error) {
	items, err := s.ScrapeFeed(ctx, url, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("feed %s has no items", url)
	}
	return &items[0], nil
}

// ScrapeFeed fetches a feed and normalizes up to maxItems entries.
// Entries that cannot be normalized are skipped, not fatal.
func (s *RSSScraper) ScrapeFeed(ctx context.Context, feedURL string, maxItems int) ([]ScrapedContent, error) {
	data, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := s.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := feed.Items
	if maxItems > 0 && len(entries) > maxItems {
		entries = entries[:maxItems]
	}

	results := make([]ScrapedContent, 0, len(entries))
	for _, item := range entries {
		normalized, err := s.normalizeItem(item, feed.Title)
		if err != nil {
			slog.Warn("Skipping feed entry", "feed", feedURL, "error", err)
			continue
		}
		results = append(results, *normalized)
	}

	return results, nil
}

func (s *RSSScraper) normalizeItem(item *gofeed.Item, feedTitle string) (*ScrapedContent, error) {
	link := cmp.Or(item.Link, item.GUID)
	if link == "" {
		return nil, fmt.Errorf("entry %q has no link", item.Title)
	}
	if strings.TrimSpace(item.Title) == "" {
		return nil, fmt.Errorf("entry %s has no title", link)
	}

	body := cmp.Or(item.Content, item.Description)
	content := stripHTML(body)
	summary := stripHTML(item.Description)
	if len(summary) > 500 {
		summary = summary[:500]
	}

	scraped := &ScrapedContent{
		Title:   strings.TrimSpace(item.Title),
		URL:     link,
		Content: content,
		Summary: summary,
		Author:  s.extractAuthor(item),
		Type:    database.SourceTypeNews,
		Metadata: map[string]any{
			"feed_title": feedTitle,
		},
	}
	if item.PublishedParsed != nil {
		scraped.PublishedAt = item.PublishedParsed
	}
	if len(item.Categories) > 0 {
		scraped.Metadata["categories"] = item.Categories
	}

	return scraped, nil
}

func (s *RSSScraper) extractAuthor(item *gofeed.Item) string {
	var names []string
	if len(item.Authors) > 0 {
		for _, author := range item.Authors {
			if author == nil {
				continue
			}
			name := cmp.Or(strings.TrimSpace(author.Name), strings.TrimSpace(author.Email))
			if name != "" {
				names = append(names, name)
			}
		}
	} else if item.Author != nil {
		name := cmp.Or(strings.TrimSpace(item.Author.Name), strings.TrimSpace(item.Author.Email))
		if name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
