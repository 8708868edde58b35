// Package enrich turns table statistics and project structure into markdown
// documents. Each document is generated with one model call; any failure, or
// a disabled generator, falls back to a deterministic template so callers
// always receive content. A generation failure never crosses this package
// boundary as an error.
package enrich

import (
	"context"
	"log/slog"
	"time"

	"github.com/datascribe-labs/datascribe/internal/metadata"
	"github.com/datascribe-labs/datascribe/pkg/core"
)

// Result is the two-variant outcome of one document: either enriched text
// with token accounting, or fallback text. Content is never empty.
type Result struct {
	Content string
	// Enriched reports whether generated text was used. When false, Content
	// holds the deterministic fallback and FallbackReason says why.
	Enriched       bool
	FallbackReason string

	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
}

// Pipeline produces documents, enriching when a generator is configured.
type Pipeline struct {
	generator Generator
	logger    *slog.Logger
}

// NewPipeline creates a pipeline. A nil generator disables enrichment: every
// document uses the fallback template. A nil logger discards all output.
func NewPipeline(generator Generator, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{generator: generator, logger: logger}
}

// TableDocument produces the document for one profiled table.
func (p *Pipeline) TableDocument(ctx context.Context, profile *core.TableStatisticsProfile, doc *metadata.Documentation) Result {
	return p.run(ctx,
		Request{SystemPrompt: TableSystemPrompt, Prompt: BuildTablePrompt(profile, doc)},
		func() string { return FallbackTableDocument(profile, doc) })
}

// ProjectSummary produces the project-level summary document.
func (p *Pipeline) ProjectSummary(ctx context.Context, graph *core.ModelGraph) Result {
	return p.run(ctx,
		Request{SystemPrompt: ProjectSystemPrompt, Prompt: BuildProjectSummaryPrompt(graph)},
		func() string { return FallbackProjectSummary(graph) })
}

// ModellingGuide produces the modelling-conventions document.
func (p *Pipeline) ModellingGuide(ctx context.Context, graph *core.ModelGraph) Result {
	return p.run(ctx,
		Request{SystemPrompt: ProjectSystemPrompt, Prompt: BuildModellingPrompt(graph)},
		func() string { return FallbackModellingGuide(graph) })
}

// run makes at most one generation attempt. No retry, no backoff: the
// fallback is the recovery path.
func (p *Pipeline) run(ctx context.Context, req Request, fallback func() string) Result {
	start := time.Now()

	if p.generator == nil {
		return Result{
			Content:        fallback(),
			FallbackReason: "generation disabled",
			Duration:       time.Since(start),
		}
	}

	gen, err := p.generator.Generate(ctx, req)
	if err != nil {
		p.logger.Warn("generation failed, using fallback", slog.String("error", err.Error()))
		return Result{
			Content:        fallback(),
			FallbackReason: err.Error(),
			Duration:       time.Since(start),
		}
	}

	return Result{
		Content:      gen.Text,
		Enriched:     true,
		InputTokens:  gen.InputTokens,
		OutputTokens: gen.OutputTokens,
		CostUSD:      Cost(p.generator.Model(), gen.InputTokens, gen.OutputTokens),
		Duration:     time.Since(start),
	}
}
