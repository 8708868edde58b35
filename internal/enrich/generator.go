package enrich

import "context"

// Request is one generation call: a fixed system prompt plus the rendered
// table or project prompt.
type Request struct {
	SystemPrompt string
	Prompt       string
}

// Generation is a successful model response with its token accounting.
type Generation struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator produces text for a prompt. Implementations wrap a hosted model;
// the pipeline never imports an SDK directly so tests can substitute a stub.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Generation, error)
	// Model returns the model identifier used for cost accounting.
	Model() string
}
