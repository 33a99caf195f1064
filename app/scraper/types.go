package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

// ScrapedContent is the normalized output of every scraper.
type ScrapedContent struct {
	Title       string
	URL         string
	Content     string
	Summary     string
	Author      string
	PublishedAt *time.Time
	Type        database.SourceType
	Metadata    map[string]any
}

// Scraper extracts content from a single URL. CanHandle routes URLs to
// the right implementation.
type Scraper interface {
	CanHandle(url string) bool
	Scrape(ctx context.Context, url string) (*ScrapedContent, error)
}

const defaultFetchTimeout = 30 * time.Second

// Fetcher is the shared HTTP layer for all scrapers.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(userAgent string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: defaultFetchTimeout},
		userAgent: userAgent,
	}
}

// SetClient replaces the HTTP client, used by tests.
func (f *Fetcher) SetClient(client *http.Client) {
	f.client = client
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected HTTP status %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
