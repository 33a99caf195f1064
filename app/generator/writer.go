package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/llm"
)

const (
	maxMetaDescriptionLength = 160
	maxSubtitleLength        = 200
	maxParseRetries          = 2
)

// temperatureLadder drops creativity on each parse retry: a lower
// temperature makes the model more likely to emit well-formed JSON.
var temperatureLadder = [maxParseRetries + 1]float32{0.7, 0.5, 0.3}

// GeneratedArticle is the fully assembled output of one writing pass.
type GeneratedArticle struct {
	Title           string
	Subtitle        string
	Content         string
	Tags            []string
	MetaDescription string
	References      []database.Reference
	WordCount       int
	CharCount       int
	Model           string
	ElapsedSeconds  float64
}

// Writer turns an evaluated source into a complete blog article.
type Writer struct {
	llm       llm.Generator
	validator *ReferenceValidator
}

// NewWriter creates a writer. validator may be nil to skip reference
// checking.
func NewWriter(generator llm.Generator, validator *ReferenceValidator) *Writer {
	return &Writer{llm: generator, validator: validator}
}

// WriteArticle generates an article from a scraped source. Malformed
// LLM responses are retried up to maxParseRetries times with
// decreasing temperature before the error is surfaced.
func (w *Writer) WriteArticle(ctx context.Context, source *database.Source) (*GeneratedArticle, error) {
	prompt := articlePrompt(source.Type, source.Title, source.Content, source.Summary, sourceAuthor(source))
	started := time.Now()

	var parsed *ParsedArticle
	var lastErr error

	for attempt := 0; attempt <= maxParseRetries; attempt++ {
		response, err := w.llm.Generate(ctx, llm.Request{
			Prompt:       prompt,
			SystemPrompt: systemPrompt,
			Temperature:  temperatureLadder[attempt],
		})
		if err != nil {
			return nil, fmt.Errorf("generating article for %q: %w", source.Title, err)
		}

		parsed, lastErr = ParseArticleResponse(response.Text)
		if lastErr == nil {
			break
		}

		var parseErr *ParseError
		if !errors.As(lastErr, &parseErr) || attempt == maxParseRetries {
			return nil, fmt.Errorf("parsing article response for %q: %w", source.Title, lastErr)
		}
		slog.Warn("Article response unparseable, retrying with lower temperature",
			"source_title", source.Title,
			"attempt", attempt+1,
			"next_temperature", temperatureLadder[attempt+1],
			"error", lastErr)
	}

	article := &GeneratedArticle{
		Title:           parsed.Title,
		Subtitle:        truncateWithEllipsis(parsed.Subtitle, maxSubtitleLength),
		Content:         parsed.Content,
		Tags:            parsed.Tags,
		MetaDescription: truncateWithEllipsis(parsed.MetaDescription, maxMetaDescriptionLength),
		Model:           w.llm.ModelName(),
		ElapsedSeconds:  time.Since(started).Seconds(),
	}

	refs := extractReferences(parsed.Content)
	if w.validator != nil && len(refs) > 0 {
		refs = w.filterReferences(ctx, refs)
	}
	article.References = refs

	// Counts describe the generated body; the credit footer is excluded.
	article.WordCount = countWords(article.Content)
	article.CharCount = utf8.RuneCountInString(article.Content)
	article.Content = appendSourceFooter(article.Content, source)

	return article, nil
}

// sourceAuthor reads the author recorded by the scrapers, which store
// it in the metadata bag rather than a dedicated column.
func sourceAuthor(source *database.Source) string {
	if author, ok := source.Metadata["author"].(string); ok {
		return author
	}
	return ""
}

var wordRe = regexp.MustCompile(`\w+`)

func countWords(content string) int {
	return len(wordRe.FindAllString(content, -1))
}

// ImproveArticle rewrites an existing article per editor feedback.
func (w *Writer) ImproveArticle(ctx context.Context, content, feedback string) (*ParsedArticle, error) {
	response, err := w.llm.Generate(ctx, llm.Request{
		Prompt:       improvementPrompt(content, feedback),
		SystemPrompt: systemPrompt,
		Temperature:  0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("improving article: %w", err)
	}
	parsed, err := ParseArticleResponse(response.Text)
	if err != nil {
		return nil, fmt.Errorf("parsing improved article: %w", err)
	}
	return parsed, nil
}

func (w *Writer) filterReferences(ctx context.Context, refs []database.Reference) []database.Reference {
	urls := make([]string, len(refs))
	for i, r := range refs {
		urls[i] = r.URL
	}

	results := w.validator.ValidateAll(ctx, urls)
	byURL := make(map[string]ValidationResult, len(results))
	for _, r := range results {
		byURL[r.URL] = r
	}

	kept := make([]database.Reference, 0, len(refs))
	for _, ref := range refs {
		result, ok := byURL[ref.URL]
		if !ok {
			kept = append(kept, ref)
			continue
		}
		if !result.Valid {
			slog.Info("Dropping unreachable reference",
				"url", ref.URL, "error", result.Error)
			continue
		}
		ref.Verified = true
		ref.FinalURL = result.FinalURL
		kept = append(kept, ref)
	}
	return kept
}

var markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
var bareURLRe = regexp.MustCompile(`https?://[^\s<>"'\)\]]+`)

// extractReferences pulls every distinct URL out of article markdown,
// preserving first-occurrence order. Markdown links contribute their
// link text as the reference title.
func extractReferences(content string) []database.Reference {
	seen := make(map[string]bool)
	var refs []database.Reference

	add := func(rawURL, title string) {
		cleaned := strings.TrimRight(rawURL, ".,;:!?")
		if cleaned == "" || seen[cleaned] {
			return
		}
		seen[cleaned] = true
		if title == "" {
			title = titleFromURL(cleaned)
		}
		refs = append(refs, database.Reference{URL: cleaned, Title: title})
	}

	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		add(m[2], strings.TrimSpace(m[1]))
	}
	stripped := markdownLinkRe.ReplaceAllString(content, "")
	for _, raw := range bareURLRe.FindAllString(stripped, -1) {
		add(raw, "")
	}

	return refs
}

// titleFromURL derives a readable label from the last path segment.
func titleFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	last := segments[len(segments)-1]
	if last == "" {
		return parsed.Host
	}
	last = strings.TrimSuffix(last, ".html")
	last = strings.ReplaceAll(last, "-", " ")
	last = strings.ReplaceAll(last, "_", " ")
	return fmt.Sprintf("%s (%s)", last, parsed.Host)
}

// appendSourceFooter adds the References section crediting the source
// material, unless the article already carries one.
func appendSourceFooter(content string, source *database.Source) string {
	if source.URL == "" {
		return content
	}
	label := "Original Source"
	switch source.Type {
	case database.SourceTypePaper:
		label = "Original Paper"
	case database.SourceTypeNews:
		label = "Original Article"
	}

	trimmed := strings.TrimRight(content, "\n")
	if strings.Contains(trimmed, "## References") {
		return trimmed + fmt.Sprintf("\n- [%s: %s](%s)\n", label, source.Title, source.URL)
	}
	return trimmed + fmt.Sprintf("\n\n## References\n\n- [%s: %s](%s)\n", label, source.Title, source.URL)
}

// truncateWithEllipsis shortens s to max bytes, ending with "..." when
// truncation happened.
func truncateWithEllipsis(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
