package scraper

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/inkwell-sh/inkwell/app/database"
)

const arxivAPIBase = "http://export.arxiv.org/api/query"

var arxivURLRe = regexp.MustCompile(`(?i)arxiv\.org/(abs|pdf)/(\d{4}\.\d{4,5})(v\d+)?`)

// ArxivScraper pulls paper metadata from the arXiv Atom API. The
// abstract serves as the content body: full paper text is not
// available through the API.
type ArxivScraper struct {
	fetcher *Fetcher
	baseURL string
}

func NewArxivScraper(fetcher *Fetcher) *ArxivScraper {
	return &ArxivScraper{fetcher: fetcher, baseURL: arxivAPIBase}
}

// SetBaseURL overrides the API endpoint, used by tests.
func (s *ArxivScraper) SetBaseURL(base string) {
	s.baseURL = base
}

func (s *ArxivScraper) CanHandle(url string) bool {
	return arxivURLRe.MatchString(url)
}

// ExtractArxivID returns the paper identifier (with version suffix if
// present) from an abs/ or pdf/ URL.
func ExtractArxivID(rawURL string) string {
	m := arxivURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return ""
	}
	return m[2] + m[3]
}

// Scrape fetches one paper by its arXiv URL.
func (s *ArxivScraper) Scrape(ctx context.Context, rawURL string) (*ScrapedContent, error) {
	arxivID := ExtractArxivID(rawURL)
	if arxivID == "" {
		return nil, fmt.Errorf("invalid arXiv URL: %s", rawURL)
	}

	apiURL := fmt.Sprintf("%s?id_list=%s", s.baseURL, url.QueryEscape(arxivID))
	entries, err := s.query(ctx, apiURL)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("paper not found: %s", arxivID)
	}
	return s.normalizeEntry(&entries[0]), nil
}

// Search queries a category for recent submissions, newest first.
func (s *ArxivScraper) Search(ctx context.Context, category string, maxResults int) ([]ScrapedContent, error) {
	params := url.Values{}
	params.Set("search_query", "cat:"+category)
	params.Set("max_results", fmt.Sprintf("%d", maxResults))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	entries, err := s.query(ctx, s.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("arXiv search for %s: %w", category, err)
	}

	results := make([]ScrapedContent, 0, len(entries))
	for i := range entries {
		results = append(results, *s.normalizeEntry(&entries[i]))
	}
	return results, nil
}

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Updated   string `xml:"updated"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	PrimaryCategory struct {
		Term string `xml:"term,attr"`
	} `xml:"primary_category"`
	Categories []struct {
		Term string `xml:"term,attr"`
	} `xml:"category"`
	Links []struct {
		Href  string `xml:"href,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

func (s *ArxivScraper) query(ctx context.Context, apiURL string) ([]arxivEntry, error) {
	data, err := s.fetcher.Fetch(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var feed arxivFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arXiv API response: %w", err)
	}
	return feed.Entries, nil
}

func (s *ArxivScraper) normalizeEntry(entry *arxivEntry) *ScrapedContent {
	title := cleanText(entry.Title)
	summary := cleanText(entry.Summary)

	var authors []string
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	categories := []string{}
	seen := make(map[string]bool)
	if term := entry.PrimaryCategory.Term; term != "" {
		categories = append(categories, term)
		seen[term] = true
	}
	for _, c := range entry.Categories {
		if c.Term != "" && !seen[c.Term] {
			categories = append(categories, c.Term)
			seen[c.Term] = true
		}
	}

	var pdfLink string
	for _, link := range entry.Links {
		if link.Title == "pdf" {
			pdfLink = link.Href
			break
		}
	}

	arxivID := ExtractArxivID(entry.ID)

	var content strings.Builder
	fmt.Fprintf(&content, "# %s\n\n", title)
	fmt.Fprintf(&content, "**Authors:** %s\n\n", strings.Join(authors, ", "))
	fmt.Fprintf(&content, "**Categories:** %s\n\n", strings.Join(categories, ", "))
	fmt.Fprintf(&content, "## Abstract\n\n%s\n", summary)

	scraped := &ScrapedContent{
		Title:   title,
		URL:     fmt.Sprintf("https://arxiv.org/abs/%s", arxivID),
		Content: content.String(),
		Summary: summary,
		Author:  strings.Join(authors, ", "),
		Type:    database.SourceTypePaper,
		Metadata: map[string]any{
			"arxiv_id":   arxivID,
			"categories": categories,
			"pdf_link":   pdfLink,
			"updated":    entry.Updated,
		},
	}
	if t, err := time.Parse(time.RFC3339, entry.Published); err == nil {
		scraped.PublishedAt = &t
	}

	return scraped
}

var whitespaceRe = regexp.MustCompile(`\s+`)

func cleanText(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
