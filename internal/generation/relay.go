// Package generation relays prompts to a chat-completion model.
package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNotConfigured is returned before any call when no model is available.
var ErrNotConfigured = errors.New("generation model is not configured")

// Model is the subset of llms.Model the relay needs.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Config configures an OpenAI-compatible chat-completion endpoint.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	// Temperature nil means 0.7; zero is a valid deterministic setting.
	Temperature *float64
	MaxTokens   int
	Timeout     time.Duration
}

// Relay calls the model with a system instruction and a user message.
// A Relay with a nil model is valid and reports ErrNotConfigured.
type Relay struct {
	model       Model
	temperature float64
	maxTokens   int
	timeout     time.Duration
	logger      *slog.Logger
}

// New builds a relay backed by langchaingo's OpenAI-compatible client. A
// missing API key is not an error: the relay is returned unconfigured.
func New(cfg Config, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "GROQ_API_KEY"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		logger.Warn("generation disabled, API key missing", "env", cfg.APIKeyEnv)
		return NewWithModel(nil, cfg, logger), nil
	}
	llm, err := openai.New(
		openai.WithToken(key),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("init model client: %w", err)
	}
	return NewWithModel(llm, cfg, logger), nil
}

// NewWithModel wraps an existing model. model may be nil.
func NewWithModel(model Model, cfg Config, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	temperature := 0.7
	if cfg.Temperature != nil {
		temperature = *cfg.Temperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 1024
	}
	return &Relay{
		model:       model,
		temperature: temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		logger:      logger,
	}
}

func (r *Relay) Configured() bool { return r.model != nil }

// Generate blocks until the model returns the whole completion.
func (r *Relay) Generate(ctx context.Context, system, user string) (string, error) {
	if r.model == nil {
		return "", ErrNotConfigured
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	resp, err := r.model.GenerateContent(ctx, messages(system, user), r.options()...)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Content, nil
}

// Stream calls fn with every non-empty fragment in arrival order and returns
// nil once the model finishes, even if it produced nothing. An error from fn
// stops the generation and is returned.
func (r *Relay) Stream(ctx context.Context, system, user string, fn func(fragment string) error) error {
	if r.model == nil {
		return ErrNotConfigured
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	fragments := 0
	opts := append(r.options(), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		fragments++
		return fn(string(chunk))
	}))
	if _, err := r.model.GenerateContent(ctx, messages(system, user), opts...); err != nil {
		return fmt.Errorf("stream after %d fragments: %w", fragments, err)
	}
	r.logger.Debug("stream finished", "fragments", fragments)
	return nil
}

func (r *Relay) options() []llms.CallOption {
	return []llms.CallOption{
		llms.WithTemperature(r.temperature),
		llms.WithMaxTokens(r.maxTokens),
	}
}

func (r *Relay) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func messages(system, user string) []llms.MessageContent {
	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}
}
