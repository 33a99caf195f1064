package generator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// maxUnwrapDepth caps the recursive nested-JSON unwrap so pathological
// responses cannot recurse unboundedly.
const maxUnwrapDepth = 3

// minContentLength is the floor below which a recovered content value is
// rejected. Protects against the model answering with only a title.
const minContentLength = 100

// ParsedArticle is the structured result recovered from an LLM response.
type ParsedArticle struct {
	Title           string   `json:"title"`
	Subtitle        string   `json:"subtitle"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags"`
	MetaDescription string   `json:"meta_description"`
}

// ParseError reports that no recovery strategy produced a valid article.
type ParseError struct {
	ResponseLen int
	Preview     string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse article from LLM response (%d chars): %s",
		e.ResponseLen, e.Preview)
}

func newParseError(text string) *ParseError {
	preview := text
	if len(preview) > 200 {
		preview = preview[:200]
	}
	return &ParseError{ResponseLen: len(text), Preview: preview}
}

// ParseArticleResponse extracts a validated article from unreliable LLM
// output. Strategies, in priority order: fenced ```json blocks
// (last valid wins), a raw {"title": anchor anywhere in the text, and
// finally field-by-field truncation recovery. Pure function over text.
func ParseArticleResponse(text string) (*ParsedArticle, error) {
	if strings.TrimSpace(text) == "" {
		return nil, newParseError(text)
	}

	candidates := findFencedJSONObjects(text)
	slog.Debug("Recovery parser found fenced candidates", "count", len(candidates))

	// The model's final answer is usually later in the transcript.
	for i := len(candidates) - 1; i >= 0; i-- {
		unwrapped := unwrapNestedJSON(candidates[i], 0)
		if article, ok := validateArticle(unwrapped); ok {
			slog.Debug("Recovery parser succeeded", "strategy", "fenced_block", "title", article.Title)
			return article, nil
		}
	}

	if raw := extractJSONObject(text); raw != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			unwrapped := unwrapNestedJSON(parsed, 0)
			if article, ok := validateArticle(unwrapped); ok {
				slog.Debug("Recovery parser succeeded", "strategy", "raw_anchor", "title", article.Title)
				return article, nil
			}
		}
	}

	if article, ok := recoverTruncated(text); ok {
		slog.Debug("Recovery parser succeeded", "strategy", "truncation_recovery", "title", article.Title)
		return article, nil
	}

	slog.Warn("Recovery parser exhausted all strategies", "response_len", len(text))
	return nil, newParseError(text)
}

var fenceRe = regexp.MustCompile("(?i)```[ \t]*json[ \t]*\r?\n?")

// findFencedJSONObjects locates ```json code fences (tolerating casing
// and stray whitespace in the info string) and brace-matches a balanced
// object from each.
func findFencedJSONObjects(text string) []map[string]any {
	var results []map[string]any

	for _, loc := range fenceRe.FindAllStringIndex(text, -1) {
		rest := text[loc[1]:]
		braceIdx := strings.Index(rest, "{")
		if braceIdx == -1 {
			continue
		}

		raw := matchBalancedObject(rest[braceIdx:])
		if raw == "" {
			continue
		}

		var parsed map[string]any
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			continue
		}
		results = append(results, parsed)
	}

	return results
}

var titleAnchorRe = regexp.MustCompile(`\{\s*\\?"title\\?"\s*:`)

// extractJSONObject scans the raw text for a {"title": anchor and
// returns the balanced object starting there, or "".
func extractJSONObject(text string) string {
	loc := titleAnchorRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return matchBalancedObject(text[loc[0]:])
}

// matchBalancedObject returns the balanced {...} prefix of text using
// brace counting with string and escape awareness. Regex cannot do this:
// content values routinely contain braces and escaped quotes.
func matchBalancedObject(text string) string {
	depth := 0
	inString := false
	escaped := false

	for i, ch := range text {
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[:i+1]
				}
			}
		}
	}

	return ""
}

// unwrapNestedJSON handles the model wrapping the real article inside
// the content field, either fenced or as a raw JSON string. Bounded
// recursion handles double nesting.
func unwrapNestedJSON(data map[string]any, depth int) map[string]any {
	if depth >= maxUnwrapDepth {
		return data
	}

	content, ok := data["content"].(string)
	if !ok {
		return data
	}
	trimmed := strings.TrimSpace(content)

	var raw string
	switch {
	case strings.HasPrefix(trimmed, "```"):
		if idx := strings.Index(trimmed, "{"); idx != -1 {
			raw = matchBalancedObject(trimmed[idx:])
		}
	case strings.HasPrefix(trimmed, "{") && strings.Contains(trimmed, `"title"`):
		raw = matchBalancedObject(trimmed)
	}
	if raw == "" {
		return data
	}

	var inner map[string]any
	if err := json.Unmarshal([]byte(raw), &inner); err != nil {
		return data
	}
	if _, hasTitle := inner["title"]; !hasTitle {
		return data
	}
	if _, hasContent := inner["content"]; !hasContent {
		return data
	}

	return unwrapNestedJSON(inner, depth+1)
}

// validateArticle checks the recovered mapping: non-empty title and a
// content string longer than the minimum.
func validateArticle(data map[string]any) (*ParsedArticle, bool) {
	title, _ := data["title"].(string)
	content, _ := data["content"].(string)
	if strings.TrimSpace(title) == "" || len(content) <= minContentLength {
		return nil, false
	}

	article := &ParsedArticle{
		Title:   title,
		Content: content,
		Tags:    []string{},
	}
	if subtitle, ok := data["subtitle"].(string); ok {
		article.Subtitle = subtitle
	}
	if meta, ok := data["meta_description"].(string); ok {
		article.MetaDescription = meta
	}
	if rawTags, ok := data["tags"].([]any); ok {
		for _, t := range rawTags {
			if s, ok := t.(string); ok {
				article.Tags = append(article.Tags, s)
			}
		}
	}

	return article, true
}

var (
	titleFieldRe    = regexp.MustCompile(`"title"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	subtitleFieldRe = regexp.MustCompile(`"subtitle"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	metaFieldRe     = regexp.MustCompile(`"meta_description"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	tagsFieldRe     = regexp.MustCompile(`"tags"\s*:\s*\[([^\]]*)\]`)
	quotedStringRe  = regexp.MustCompile(`"((?:[^"\\]|\\.)*)"`)
	contentStartRe  = regexp.MustCompile(`"content"\s*:\s*"`)
)

// recoverTruncated salvages what it can from a response cut off mid-way
// through the content string: simple quoted scalars via regex, then a
// manual escape-aware walk of the content value that accepts a partial
// string if it clears the minimum length.
func recoverTruncated(text string) (*ParsedArticle, bool) {
	titleMatch := titleFieldRe.FindStringSubmatch(text)
	if titleMatch == nil {
		return nil, false
	}

	contentLoc := contentStartRe.FindStringIndex(text)
	if contentLoc == nil {
		return nil, false
	}
	content, _ := walkStringValue(text[contentLoc[1]:])
	if len(content) <= minContentLength {
		return nil, false
	}

	article := &ParsedArticle{
		Title:   decodeEscapes(titleMatch[1]),
		Content: content,
		Tags:    []string{},
	}
	if m := subtitleFieldRe.FindStringSubmatch(text); m != nil {
		article.Subtitle = decodeEscapes(m[1])
	}
	if m := metaFieldRe.FindStringSubmatch(text); m != nil {
		article.MetaDescription = decodeEscapes(m[1])
	}
	if m := tagsFieldRe.FindStringSubmatch(text); m != nil {
		for _, tag := range quotedStringRe.FindAllStringSubmatch(m[1], -1) {
			article.Tags = append(article.Tags, decodeEscapes(tag[1]))
		}
	}

	return article, true
}

// walkStringValue consumes a JSON string value character by character,
// applying escape rules, until the closing quote or the end of input.
// The boolean reports whether a closing quote was found.
func walkStringValue(text string) (string, bool) {
	var b strings.Builder
	escaped := false

	for _, ch := range text {
		if escaped {
			switch ch {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			default:
				b.WriteRune(ch)
			}
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			return b.String(), true
		default:
			b.WriteRune(ch)
		}
	}

	return b.String(), false
}

func decodeEscapes(s string) string {
	decoded, _ := walkStringValue(s + `"`)
	return decoded
}
