package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 120 * time.Second

	maxAttempts       = 3
	initialRetryDelay = 2 * time.Second
)

// Client generates text through the Gemini API. Each call carries a
// hard wall-clock timeout and transient errors are retried with
// exponential backoff.
type Client struct {
	gClient   *genai.Client
	modelName string
	timeout   time.Duration
}

var _ Generator = (*Client)(nil)

// NewClient creates a Gemini-backed text generation client.
func NewClient(ctx context.Context, apiKey, modelName string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		gClient:   gClient,
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

func (c *Client) ModelName() string {
	return c.modelName
}

// Generate runs one text generation call. Rate-limit and unavailable
// errors are retried up to 3 times; a deadline overrun is surfaced as
// ErrTimeout so callers can branch on it.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: req.Prompt}},
		Role:  "user",
	}}

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temp := req.Temperature
		config.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = req.MaxTokens
	}
	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	policy := Policy{
		Attempts:  maxAttempts,
		Delay:     initialRetryDelay,
		Retryable: isRetryable,
	}

	resp, err := Do(ctx, policy, func(ctx context.Context) (*genai.GenerateContentResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.gClient.Models.GenerateContent(callCtx, c.modelName, contents, config)
		if err != nil {
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				slog.Error("Gemini API timeout", "timeout", c.timeout)
				return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
			}
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code == 503) {
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Message)
			}
			return nil, fmt.Errorf("gemini API error: %w", err)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty response from model %s", c.modelName)
	}

	result := &Response{
		Text:           text,
		Model:          c.modelName,
		ElapsedSeconds: time.Since(start).Seconds(),
	}
	if resp.UsageMetadata != nil {
		result.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	slog.Debug("LLM generation completed",
		"model", result.Model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"elapsed_seconds", result.ElapsedSeconds)

	return result, nil
}
