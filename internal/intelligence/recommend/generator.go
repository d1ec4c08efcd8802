// Package recommend produces up to five remediation recommendations for a
// certificate. A generative backend is tried first under a bounded timeout;
// every failure falls back to a deterministic rule table.
package recommend

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/intelligence/common"
)

const (
	// MaxItems caps every result.
	MaxItems = 5
	// DefaultTimeout bounds the generative call.
	DefaultTimeout = 15 * time.Second
)

// Context is the input to Generate.
type Context struct {
	OrganizationName string
	SystemName       string
	RiskLevel        assessment.RiskLevel
	RiskScore        *int
	MaturityLevel    assessment.MaturityLevel
	MaturityScore    *int
	ComplianceScore  int
	Language         string
}

// Result carries the items and where they came from.
type Result struct {
	Items  []string `json:"items"`
	Source string   `json:"source"`
}

// Options configures a Generator.
type Options struct {
	Timeout  time.Duration
	Model    string
	Language string
	Metrics  common.GenerationMetrics
}

// Generator implements the primary/fallback recommendation flow. A nil
// TextGenerator disables the primary path.
type Generator struct {
	llm     common.TextGenerator
	opts    Options
	logger  logging.Logger
	metrics common.GenerationMetrics
}

// NewGenerator returns a Generator. llm may be nil.
func NewGenerator(llm common.TextGenerator, opts Options, logger logging.Logger) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := opts.Metrics
	if m == nil {
		m = common.NewNoopGenerationMetrics()
	}
	return &Generator{llm: llm, opts: opts, logger: logger.Named("recommend"), metrics: m}
}

type generation struct {
	text string
	err  error
}

// Generate never fails: any error, panic, timeout, cancellation or empty
// output of the generative backend yields the fallback table.
func (g *Generator) Generate(ctx context.Context, in Context) Result {
	if in.Language == "" {
		in.Language = g.opts.Language
	}
	start := time.Now()

	if g.llm == nil {
		return g.fallback(ctx, in, common.ReasonDisabled, start)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	// buffered so the goroutine can finish after we stop listening
	done := make(chan generation, 1)
	prompt := BuildPrompt(in)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("generator panic: %v", r)}
			}
		}()
		text, err := g.llm.Generate(callCtx, prompt)
		done <- generation{text: text, err: err}
	}()

	select {
	case <-callCtx.Done():
		reason := common.ReasonTimeout
		if ctx.Err() != nil {
			reason = common.ReasonCancelled
		}
		g.logger.Warn("recommendation generation abandoned",
			logging.String("reason", reason),
			logging.String("organization", in.OrganizationName))
		return g.fallback(ctx, in, reason, start)
	case res := <-done:
		if res.err != nil {
			g.logger.Warn("recommendation generation failed, using fallback",
				logging.Err(res.err),
				logging.String("organization", in.OrganizationName))
			return g.fallback(ctx, in, common.ReasonError, start)
		}
		items := ParseItems(res.text)
		if len(items) == 0 {
			return g.fallback(ctx, in, common.ReasonEmpty, start)
		}
		g.record(ctx, in, common.SourceLLM, "", len(items), start)
		return Result{Items: items, Source: common.SourceLLM}
	}
}

// Recommend exposes Generate through the certificate composer's interface
// shape without importing it.
func (g *Generator) Recommend(ctx context.Context, in Context) ([]string, string) {
	r := g.Generate(ctx, in)
	return r.Items, r.Source
}

func (g *Generator) fallback(ctx context.Context, in Context, reason string, start time.Time) Result {
	items := Fallback(in)
	g.record(ctx, in, common.SourceFallback, reason, len(items), start)
	return Result{Items: items, Source: common.SourceFallback}
}

func (g *Generator) record(ctx context.Context, in Context, source, reason string, n int, start time.Time) {
	g.metrics.RecordGeneration(ctx, &common.GenerationMetricParams{
		Model:          g.opts.Model,
		Source:         source,
		FallbackReason: reason,
		DurationMs:     float64(time.Since(start).Microseconds()) / 1000,
		Items:          n,
		Language:       in.Language,
	})
}

var enumerationMarker = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)

// ParseItems splits generated text into at most MaxItems recommendations,
// dropping blank lines and leading enumeration markers.
func ParseItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(enumerationMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line == "" {
			continue
		}
		items = append(items, line)
		if len(items) == MaxItems {
			break
		}
	}
	return items
}

// BuildPrompt renders the structured prompt for the generative backend.
func BuildPrompt(in Context) string {
	var b strings.Builder
	lang := "English"
	if in.Language == "de" {
		lang = "German"
	}
	fmt.Fprintf(&b, "Provide %d concise EU AI Act compliance recommendations in %s.\n", MaxItems, lang)
	fmt.Fprintf(&b, "Organization: %s\n", in.OrganizationName)
	if in.SystemName != "" {
		fmt.Fprintf(&b, "AI system: %s\n", in.SystemName)
	}
	if in.RiskLevel != "" {
		if in.RiskScore != nil {
			fmt.Fprintf(&b, "Risk level: %s (score %d/100)\n", in.RiskLevel, *in.RiskScore)
		} else {
			fmt.Fprintf(&b, "Risk level: %s\n", in.RiskLevel)
		}
	}
	if in.MaturityScore != nil {
		fmt.Fprintf(&b, "Maturity: %s (score %d/100)\n", in.MaturityLevel, *in.MaturityScore)
	}
	fmt.Fprintf(&b, "Compliance score: %d/100\n", in.ComplianceScore)
	b.WriteString("Return one recommendation per line without numbering or commentary.")
	return b.String()
}
