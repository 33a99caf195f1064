package generator

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/inkwell-sh/inkwell/app/database"
	"github.com/inkwell-sh/inkwell/app/llm"
)

// maxEvalContentLength caps the source content included in a single
// evaluation prompt so it fits the model's context window.
const maxEvalContentLength = 10000

const evalTemperature = 0.3

// SourceEvaluation is the relevance assessment for one source.
type SourceEvaluation struct {
	RelevanceScore int      `json:"relevance_score"` // 0-100
	SuggestedTopic string   `json:"suggested_topic"`
	KeyPoints      []string `json:"key_points"`
	Reason         string   `json:"reason"`
	IsRecommended  bool     `json:"is_recommended"`
}

// BatchSource is one entry in a batch evaluation request.
type BatchSource struct {
	ID      string
	Type    database.SourceType
	Title   string
	URL     string
	Summary string
}

// BatchResult is one entry of a batch evaluation response. SourceID
// comes back from the LLM and must be validated against the input set
// before any store write, since models corrupt identifiers.
type BatchResult struct {
	SourceID       string `json:"source_id"`
	RelevanceScore int    `json:"relevance_score"`
	SuggestedTopic string `json:"suggested_topic"`
	Reason         string `json:"reason"`
}

// Evaluator scores sources for article generation suitability.
type Evaluator struct {
	llm llm.Generator
}

// NewEvaluator creates a source evaluator.
func NewEvaluator(generator llm.Generator) *Evaluator {
	return &Evaluator{llm: generator}
}

// EvaluateSource scores a single source. Parse failures return a
// neutral default rather than an error: one unscoreable source must not
// halt the batch.
func (e *Evaluator) EvaluateSource(ctx context.Context, sourceType database.SourceType, title, url, content, summary string) (*SourceEvaluation, error) {
	truncated := content
	if len(truncated) > maxEvalContentLength {
		truncated = truncated[:maxEvalContentLength] + "\n\n[Content truncated...]"
	}

	prompt := evaluationPrompt(sourceType, title, url, truncated, summary)

	response, err := e.llm.Generate(ctx, llm.Request{
		Prompt:      prompt,
		Temperature: evalTemperature,
	})
	if err != nil {
		return nil, err
	}

	return e.parseEvaluation(response.Text), nil
}

// EvaluateBatch scores many sources in one LLM call, trading per-item
// isolation for reduced rate-limit exposure. Results whose source_id is
// not in the input set are dropped.
func (e *Evaluator) EvaluateBatch(ctx context.Context, sources []BatchSource) ([]BatchResult, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	response, err := e.llm.Generate(ctx, llm.Request{
		Prompt:      batchEvaluationPrompt(sources),
		Temperature: evalTemperature,
	})
	if err != nil {
		return nil, err
	}

	results := e.parseBatchResponse(response.Text)

	known := make(map[string]bool, len(sources))
	for _, s := range sources {
		known[s.ID] = true
	}

	valid := make([]BatchResult, 0, len(results))
	for _, r := range results {
		if !known[r.SourceID] {
			slog.Warn("Discarding batch evaluation result with unknown source_id",
				"source_id", r.SourceID)
			continue
		}
		r.RelevanceScore = clampScore(r.RelevanceScore)
		valid = append(valid, r)
	}

	return valid, nil
}

var evalFenceRe = regexp.MustCompile("(?is)```[ \t]*json\\s*(.*?)\\s*```")

func (e *Evaluator) parseEvaluation(text string) *SourceEvaluation {
	raw := ""
	if m := evalFenceRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else {
		raw = extractScoreObject(text)
	}

	if raw != "" {
		var eval SourceEvaluation
		if err := json.Unmarshal([]byte(raw), &eval); err == nil {
			eval.RelevanceScore = clampScore(eval.RelevanceScore)
			if eval.KeyPoints == nil {
				eval.KeyPoints = []string{}
			}
			return &eval
		}
	}

	slog.Warn("Failed to parse evaluation response, using neutral default",
		"response_len", len(text))
	return &SourceEvaluation{
		RelevanceScore: 50,
		KeyPoints:      []string{},
		Reason:         "Failed to parse evaluation response",
		IsRecommended:  false,
	}
}

func (e *Evaluator) parseBatchResponse(text string) []BatchResult {
	raw := ""
	if m := evalFenceRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	}
	if !strings.HasPrefix(strings.TrimSpace(raw), "[") {
		start := strings.Index(text, "[")
		end := strings.LastIndex(text, "]")
		if start == -1 || end <= start {
			return nil
		}
		raw = text[start : end+1]
	}

	var results []BatchResult
	if err := json.Unmarshal([]byte(raw), &results); err != nil {
		slog.Warn("Failed to parse batch evaluation response", "error", err)
		return nil
	}
	return results
}

var scoreAnchorRe = regexp.MustCompile(`\{\s*"relevance_score"`)

func extractScoreObject(text string) string {
	loc := scoreAnchorRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	return matchBalancedObject(text[loc[0]:])
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
