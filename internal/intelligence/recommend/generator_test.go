package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/AIComply/internal/domain/assessment"
	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/intelligence/common"
)

func intPtr(v int) *int { return &v }

func newTestGenerator(llm common.TextGenerator, timeout time.Duration) (*Generator, *common.InMemoryGenerationMetrics) {
	m := common.NewInMemoryGenerationMetrics()
	g := NewGenerator(llm, Options{Timeout: timeout, Model: "test-model", Metrics: m}, logging.NewNopLogger())
	return g, m
}

func TestGenerate_LLMSuccess(t *testing.T) {
	llm := common.TextGeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		assert.Contains(t, prompt, "Acme GmbH")
		return "1. Document the model\n2) Appoint an AI officer\n\n- Log every decision\n* Review data sources\n• Train staff\n6. Sixth item", nil
	})
	g, m := newTestGenerator(llm, time.Second)

	res := g.Generate(context.Background(), Context{OrganizationName: "Acme GmbH", RiskLevel: assessment.RiskHigh, ComplianceScore: 42})

	assert.Equal(t, common.SourceLLM, res.Source)
	assert.Equal(t, []string{
		"Document the model",
		"Appoint an AI officer",
		"Log every decision",
		"Review data sources",
		"Train staff",
	}, res.Items)
	assert.Equal(t, 1, m.CountBySource(common.SourceLLM))
}

func TestGenerate_FallbackOnError(t *testing.T) {
	llm := common.TextGeneratorFunc(func(context.Context, string) (string, error) {
		return "", errors.New("upstream 503")
	})
	g, m := newTestGenerator(llm, time.Second)

	res := g.Generate(context.Background(), Context{RiskLevel: assessment.RiskLimited})

	assert.Equal(t, common.SourceFallback, res.Source)
	assert.Equal(t, Fallback(Context{RiskLevel: assessment.RiskLimited, Language: "en"}), res.Items)
	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, common.ReasonError, events[0].FallbackReason)
}

func TestGenerate_FallbackOnPanic(t *testing.T) {
	llm := common.TextGeneratorFunc(func(context.Context, string) (string, error) {
		panic("backend exploded")
	})
	g, m := newTestGenerator(llm, time.Second)

	var res Result
	require.NotPanics(t, func() {
		res = g.Generate(context.Background(), Context{RiskLevel: assessment.RiskHigh})
	})

	assert.Equal(t, common.SourceFallback, res.Source)
	assert.NotEmpty(t, res.Items)
	events := m.Events()
	require.Len(t, events, 1)
	assert.Equal(t, common.ReasonError, events[0].FallbackReason)
}

func TestGenerate_FallbackOnEmptyOutput(t *testing.T) {
	llm := common.TextGeneratorFunc(func(context.Context, string) (string, error) {
		return "\n  \n- \n", nil
	})
	g, m := newTestGenerator(llm, time.Second)

	res := g.Generate(context.Background(), Context{})
	assert.Equal(t, common.SourceFallback, res.Source)
	assert.Equal(t, common.ReasonEmpty, m.Events()[0].FallbackReason)
}

func TestGenerate_TimeoutReturnsFallbackPromptly(t *testing.T) {
	llm := common.TextGeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		// ignores cancellation on purpose
		time.Sleep(500 * time.Millisecond)
		return "late", nil
	})
	g, m := newTestGenerator(llm, 20*time.Millisecond)

	start := time.Now()
	res := g.Generate(context.Background(), Context{RiskLevel: assessment.RiskHigh})

	assert.Less(t, time.Since(start), 300*time.Millisecond)
	assert.Equal(t, common.SourceFallback, res.Source)
	assert.Equal(t, common.ReasonTimeout, m.Events()[0].FallbackReason)
}

func TestGenerate_CallerCancellation(t *testing.T) {
	llm := common.TextGeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	g, m := newTestGenerator(llm, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := g.Generate(ctx, Context{})

	assert.Equal(t, common.SourceFallback, res.Source)
	assert.Equal(t, common.ReasonCancelled, m.Events()[0].FallbackReason)
}

func TestGenerate_NilGenerator(t *testing.T) {
	g, m := newTestGenerator(nil, 0)
	res := g.Generate(context.Background(), Context{MaturityScore: intPtr(30)})

	assert.Equal(t, common.SourceFallback, res.Source)
	assert.Equal(t, common.ReasonDisabled, m.Events()[0].FallbackReason)
	assert.Equal(t, DefaultTimeout, g.opts.Timeout)
}

func TestGenerate_DefaultLanguageApplied(t *testing.T) {
	g := NewGenerator(nil, Options{Language: "de"}, nil)
	res := g.Generate(context.Background(), Context{})
	assert.Equal(t, fallbackTables["de"].baseline, res.Items)
}

func TestRecommend_ReturnsItemsAndSource(t *testing.T) {
	g, _ := newTestGenerator(nil, 0)
	items, source := g.Recommend(context.Background(), Context{})
	assert.Equal(t, common.SourceFallback, source)
	assert.Len(t, items, 2)
}

func TestFallback_Rules(t *testing.T) {
	en := fallbackTables["en"]

	tests := []struct {
		name string
		in   Context
		want []string
	}{
		{
			name: "minimal risk, no maturity",
			in:   Context{RiskLevel: assessment.RiskMinimal},
			want: en.baseline,
		},
		{
			name: "limited risk",
			in:   Context{RiskLevel: assessment.RiskLimited},
			want: append(append([]string{}, en.limitedRisk...), en.baseline...),
		},
		{
			name: "high risk, mature organisation",
			in:   Context{RiskLevel: assessment.RiskHigh, MaturityScore: intPtr(75)},
			want: append(append([]string{}, en.highRisk...), en.baseline...),
		},
		{
			name: "high risk, low maturity truncated to five",
			in:   Context{RiskLevel: assessment.RiskUnacceptable, MaturityScore: intPtr(59)},
			want: []string{en.highRisk[0], en.highRisk[1], en.lowMaturity[0], en.lowMaturity[1], en.baseline[0]},
		},
		{
			name: "maturity at threshold is not low",
			in:   Context{MaturityScore: intPtr(60)},
			want: en.baseline,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxItems)
		})
	}
}

func TestFallback_LanguageSelection(t *testing.T) {
	de := Fallback(Context{RiskLevel: assessment.RiskLimited, Language: "de"})
	assert.Equal(t, fallbackTables["de"].limitedRisk[0], de[0])

	unknown := Fallback(Context{RiskLevel: assessment.RiskLimited, Language: "fr"})
	assert.Equal(t, fallbackTables["en"].limitedRisk[0], unknown[0])
}

func TestFallback_DoesNotAliasTables(t *testing.T) {
	items := Fallback(Context{})
	items[0] = "mutated"
	assert.NotEqual(t, "mutated", fallbackTables["en"].baseline[0])
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(Context{
		OrganizationName: "Acme",
		SystemName:       "CV Screener",
		RiskLevel:        assessment.RiskHigh,
		RiskScore:        intPtr(85),
		MaturityLevel:    assessment.MaturityDefined,
		MaturityScore:    intPtr(45),
		ComplianceScore:  61,
		Language:         "de",
	})
	assert.Contains(t, p, "in German")
	assert.Contains(t, p, "AI system: CV Screener")
	assert.Contains(t, p, "Risk level: high (score 85/100)")
	assert.Contains(t, p, "Maturity: defined (score 45/100)")
	assert.Contains(t, p, "Compliance score: 61/100")
	assert.False(t, strings.Contains(BuildPrompt(Context{}), "AI system:"))
}
