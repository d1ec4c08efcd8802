// Package llm is an OpenAI-compatible chat-completions client implementing
// common.TextGenerator on top of go-openai. Any server exposing
// POST {base}/chat/completions (OpenAI, Azure OpenAI gateways, vLLM, Ollama)
// can back it.
package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/turtacn/AIComply/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/AIComply/internal/intelligence/common"
	"github.com/turtacn/AIComply/pkg/errors"
)

const systemPrompt = "You are an EU AI Act compliance advisor. Answer with short, actionable recommendations, one per line."

// Config configures the client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds the HTTP exchange; callers usually impose a shorter
	// deadline through the context.
	Timeout time.Duration
}

// ClientOption customises a Client.
type ClientOption func(*openai.ClientConfig)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *openai.ClientConfig) {
		if hc != nil {
			c.HTTPClient = hc
		}
	}
}

// Client talks to a chat-completions endpoint.
type Client struct {
	cfg    Config
	api    *openai.Client
	logger logging.Logger
}

var _ common.TextGenerator = (*Client)(nil)

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config, logger logging.Logger, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.InvalidParam("llm base url is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.InvalidParam("llm model is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	// go-openai appends "/chat/completions" verbatim
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	apiCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&apiCfg)
	}

	return &Client{
		cfg:    cfg,
		api:    openai.NewClientWithConfig(apiCfg),
		logger: logger.Named("llm"),
	}, nil
}

// Generate sends prompt as a single user message and returns the first
// choice's content.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: float32(c.cfg.Temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "chat request cancelled")
		}
		var apiErr *openai.APIError
		if stderrors.As(err, &apiErr) {
			c.logger.Warn("chat completion rejected",
				logging.Int("status", apiErr.HTTPStatusCode),
				logging.Duration("elapsed", time.Since(start)))
			return "", errors.Wrap(err, errors.ErrCodeExternalService, "chat completion rejected").
				WithDetail(apiErr.Message)
		}
		return "", errors.Wrap(err, errors.ErrCodeExternalService, "chat request failed")
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", errors.New(errors.ErrCodeEmptyGeneration, "chat completion returned no content")
	}

	c.logger.Debug("chat completion succeeded",
		logging.String("model", c.cfg.Model),
		logging.Int("total_tokens", resp.Usage.TotalTokens),
		logging.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.cfg.Model }
