// Package common holds the contracts shared by the intelligence layer: the
// single text-generation capability and the telemetry recorded around it.
package common

import "context"

// TextGenerator is a generative-text backend. It has no latency guarantee;
// callers impose their own deadline through ctx.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TextGeneratorFunc adapts a function to TextGenerator.
type TextGeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f TextGeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Recommendation sources.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Fallback reasons recorded in metrics and logs.
const (
	ReasonDisabled  = "disabled"
	ReasonError     = "error"
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
	ReasonEmpty     = "empty"
)
