package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/inkwell-sh/inkwell/app/database"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
	<title>Deep Dive | Tech Site</title>
	<meta property="og:title" content="A Deep Dive into Inference Costs">
	<meta name="description" content="Why serving LLMs is expensive.">
	<meta name="author" content="Sam Writer">
</head>
<body>
	<nav>Home About</nav>
	<article>
		<h1>A Deep Dive into Inference Costs</h1>
		<p>Serving large language models at scale remains one of the most
		expensive parts of the modern AI stack. GPU time dominates the bill,
		and batching strategies only go so far when latency targets are
		tight. This article walks through the cost structure of a typical
		inference deployment and where the money actually goes.</p>
		<p>We start with the hardware. A single accelerator node can cost
		more per month than a small engineering team, and utilization rarely
		exceeds forty percent in production workloads with bursty traffic
		patterns. Overprovisioning for peak load is the norm, not the
		exception, which inflates the effective cost per token.</p>
	</article>
	<footer>Copyright 2026</footer>
</body>
</html>`

func TestArticleScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	scraper := NewArticleScraper(NewFetcher("test-agent"))
	scraped, err := scraper.Scrape(context.Background(), server.URL+"/post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scraped.Title != "A Deep Dive into Inference Costs" {
		t.Errorf("unexpected title %q", scraped.Title)
	}
	if scraped.Summary != "Why serving LLMs is expensive." {
		t.Errorf("unexpected summary %q", scraped.Summary)
	}
	if scraped.Author != "Sam Writer" {
		t.Errorf("unexpected author %q", scraped.Author)
	}
	if scraped.Type != database.SourceTypeArticle {
		t.Errorf("unexpected type %q", scraped.Type)
	}
	if !strings.Contains(scraped.Content, "cost per token") {
		t.Errorf("content missing article body: %q", scraped.Content)
	}
}

func TestArticleCanHandle(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/post", true},
		{"http://example.com", true},
		{"ftp://example.com/file", false},
		{"not a url", false},
	}

	scraper := NewArticleScraper(NewFetcher("test-agent"))
	for _, tt := range tests {
		if got := scraper.CanHandle(tt.url); got != tt.want {
			t.Errorf("CanHandle(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestExtractTitleFallbacks(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			"og title preferred",
			`<html><head><meta property="og:title" content="OG Title"><title>Tag Title</title></head><body><h1>Heading Title Here</h1></body></html>`,
			"OG Title",
		},
		{
			"h1 fallback",
			`<html><head></head><body><article><h1>A Sufficiently Long Heading</h1></article></body></html>`,
			"A Sufficiently Long Heading",
		},
		{
			"title tag suffix stripped",
			`<html><head><title>Real Title | Site Name</title></head><body></body></html>`,
			"Real Title",
		},
		{
			"empty page",
			`<html><head></head><body></body></html>`,
			"Untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParseHTML(t, tt.html)
			if got := extractTitle(doc); got != tt.want {
				t.Errorf("extractTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRegistryRouting(t *testing.T) {
	registry := NewRegistry(NewFetcher("test-agent"))

	tests := []struct {
		url  string
		want string
	}{
		{"https://arxiv.org/abs/2401.12345", "*scraper.ArxivScraper"},
		{"https://techcrunch.com/feed/", "*scraper.RSSScraper"},
		{"https://example.com/some-post", "*scraper.ArticleScraper"},
	}

	for _, tt := range tests {
		s, err := registry.ForURL(tt.url)
		if err != nil {
			t.Errorf("ForURL(%q): unexpected error %v", tt.url, err)
			continue
		}
		if got := typeName(s); got != tt.want {
			t.Errorf("ForURL(%q) routed to %s, want %s", tt.url, got, tt.want)
		}
	}

	if _, err := registry.ForURL("mailto:nobody@example.com"); err == nil {
		t.Error("expected no scraper for non-http URL")
	}
}
