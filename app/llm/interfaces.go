package llm

import "context"

// Request describes one text generation call.
type Request struct {
	Prompt       string
	SystemPrompt string
	MaxTokens    int32
	Temperature  float32
}

// Response carries the generated text plus accounting metadata.
type Response struct {
	Text           string
	Model          string
	InputTokens    int
	OutputTokens   int
	ElapsedSeconds float64
}

// Generator is the text-generation port consumed by the evaluator and
// the writer. Implementations own transport-level retry and timeout.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	ModelName() string
}
