package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/inkwell-sh/inkwell/app/database"
)

// ArticleScraper handles arbitrary web pages, the fallback when no
// specialized scraper claims the URL.
type ArticleScraper struct {
	fetcher   *Fetcher
	extractor *ContentExtractor
}

func NewArticleScraper(fetcher *Fetcher) *ArticleScraper {
	return &ArticleScraper{
		fetcher:   fetcher,
		extractor: NewContentExtractor(),
	}
}

func (s *ArticleScraper) CanHandle(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func (s *ArticleScraper) Scrape(ctx context.Context, rawURL string) (*ScrapedContent, error) {
	html, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}

	content, err := s.extractor.Run(html)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article from %s: %w", rawURL, err)
	}

	parsed, _ := url.Parse(rawURL)
	domain := ""
	if parsed != nil {
		domain = parsed.Host
	}

	return &ScrapedContent{
		Title:   extractTitle(doc),
		URL:     rawURL,
		Content: content,
		Summary: extractSummary(doc),
		Author:  extractAuthorMeta(doc),
		Type:    database.SourceTypeArticle,
		Metadata: map[string]any{
			"domain": domain,
		},
	}, nil
}

var titleSuffixRe = regexp.MustCompile(`\s*[|\-–—]\s*`)

// extractTitle tries Open Graph, Twitter card, prominent h1 elements
// and finally the title tag.
func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if tw, ok := doc.Find("meta[name='twitter:title']").Attr("content"); ok && strings.TrimSpace(tw) != "" {
		return strings.TrimSpace(tw)
	}

	selectors := []string{"article h1", "main h1", ".content h1", "h1.title", "h1.headline", "h1"}
	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len(text) > 10 {
			return text
		}
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return strings.TrimSpace(titleSuffixRe.Split(title, 2)[0])
	}

	return "Untitled"
}

func extractSummary(doc *goquery.Document) string {
	for _, selector := range []string{
		"meta[property='og:description']",
		"meta[name='twitter:description']",
		"meta[name='description']",
	} {
		if content, ok := doc.Find(selector).Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	return ""
}

func extractAuthorMeta(doc *goquery.Document) string {
	for _, selector := range []string{
		"meta[name='author']",
		"meta[property='article:author']",
	} {
		if content, ok := doc.Find(selector).Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	for _, selector := range []string{".author-name", ".byline", "[rel='author']"} {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}
