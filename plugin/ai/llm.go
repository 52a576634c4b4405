// Package ai wraps the chat completion provider used to answer questions.
package ai

import (
	"context"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	qerr "github.com/hrygo/stridesense/internal/errors"
)

// Config holds the LLM provider configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	MaxRetries int
	Timeout    time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "https://api.openai.com/v1",
		APIKey:     "",
		ChatModel:  "gpt-4o-mini",
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	}
}

// GenerateOptions tunes a single completion request.
type GenerateOptions struct {
	System      string
	Temperature float32
	MaxTokens   int

	// QueryTypeHint tags the request for routing providers that pick a model
	// per query class; plain OpenAI-compatible endpoints ignore it.
	QueryTypeHint string
}

// Provider wraps an OpenAI-compatible chat completion endpoint.
type Provider struct {
	client *openai.Client
	config *Config
}

// NewProvider creates a new LLM provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	// Apply defaults for unset values
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// IsConfigured reports whether the provider has credentials to call out with.
func (p *Provider) IsConfigured() bool {
	return p.config.APIKey != ""
}

// Generate performs a chat completion and maps provider failures onto the
// query error taxonomy so callers can decide how to degrade.
func (p *Provider) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (string, error) {
	if !p.IsConfigured() {
		return "", qerr.Config("LLM API key is not configured")
	}
	if opts == nil {
		opts = &GenerateOptions{}
	}

	messages := []openai.ChatCompletionMessage{}
	if opts.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: opts.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	if opts.QueryTypeHint != "" {
		slog.Debug("generating answer", "query_type", opts.QueryTypeHint)
	}

	var result string
	err := p.doWithRetry(ctx, func() error {
		req := openai.ChatCompletionRequest{
			Model:       p.config.ChatModel,
			Messages:    messages,
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		}

		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return qerr.Upstream("empty chat response", nil)
		}
		result = resp.Choices[0].Message.Content
		return nil
	})

	if err != nil {
		return "", ClassifyError(err)
	}

	return result, nil
}

// ClassifyError maps a raw provider error onto a query error. Already
// classified errors pass through unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if code := qerr.GetCodeFromError(err, qerr.ErrCodeInternal); code != qerr.ErrCodeInternal {
		return err
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context length") ||
		strings.Contains(msg, "maximum context") ||
		strings.Contains(msg, "token limit") ||
		strings.Contains(msg, "too long"):
		return qerr.ContextTooLarge(err)
	case strings.Contains(msg, "api key") ||
		strings.Contains(msg, "invalid authentication") ||
		strings.Contains(msg, "incorrect api key"):
		return qerr.Config("LLM API key was rejected")
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return qerr.RateLimited("LLM provider rate limited the request")
	case strings.Contains(msg, "deadline exceeded") || strings.Contains(msg, "timeout"):
		return qerr.Timeout("LLM request timed out")
	default:
		return qerr.Upstream("LLM request failed", err)
	}
}

// doWithRetry executes a function with exponential backoff retry. Errors that
// retrying cannot cure are returned immediately.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Debug("LLM request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

// isRetryable reports whether a retry could plausibly succeed. Oversized
// context and bad credentials fail the same way every time.
func isRetryable(err error) bool {
	classified := ClassifyError(err)
	switch qerr.GetCodeFromError(classified, qerr.ErrCodeInternal) {
	case qerr.ErrCodeContextTooLarge, qerr.ErrCodeConfig, qerr.ErrCodeUnauthenticated:
		return false
	}
	return true
}

// NewProviderFromEnv creates a provider from environment variables.
func NewProviderFromEnv() (*Provider, error) {
	return NewProvider(&Config{
		BaseURL:    getEnv("STRIDESENSE_LLM_BASE_URL", "https://api.openai.com/v1"),
		APIKey:     getEnv("STRIDESENSE_LLM_API_KEY", ""),
		ChatModel:  getEnv("STRIDESENSE_LLM_MODEL", "gpt-4o-mini"),
		MaxRetries: 3,
		Timeout:    30 * time.Second,
	})
}

// getEnv gets an environment variable with a fallback.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
