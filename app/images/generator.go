package images

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/inkwell-sh/inkwell/app/generator"
)

const (
	// DefaultModel is the Gemini image generation model.
	DefaultModel = "gemini-2.0-flash-exp"

	defaultTimeout = 60 * time.Second
)

// Generator produces hero images for articles.
type Generator interface {
	GenerateHeroImage(ctx context.Context, title, contentSummary string) ([]byte, string, error)
}

// GeminiGenerator renders hero images through the Gemini API. The
// second return value of GenerateHeroImage is the image MIME type.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client:  client,
		model:   DefaultModel,
		timeout: defaultTimeout,
	}, nil
}

func (g *GeminiGenerator) GenerateHeroImage(ctx context.Context, title, contentSummary string) ([]byte, string, error) {
	prompt := generator.ImagePrompt(title, contentSummary)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, config)
	if err != nil {
		return nil, "", fmt.Errorf("image generation failed for %q: %w", title, err)
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil {
				continue
			}
			if strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				return part.InlineData.Data, part.InlineData.MIMEType, nil
			}
		}
	}

	return nil, "", fmt.Errorf("no image in response for %q", title)
}

var _ Generator = (*GeminiGenerator)(nil)
