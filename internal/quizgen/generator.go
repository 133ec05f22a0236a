package quizgen

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v5"

	"github.com/samvad-hq/wikiquiz/internal/domain"
	"github.com/samvad-hq/wikiquiz/internal/logger"
)

const (
	defaultTemperature          = 0.2
	defaultModelTimeout         = 60 * time.Second
	defaultMaxAttempts          = 2
	defaultRetryInitialInterval = 500 * time.Millisecond
)

// Config carries the generative-model settings for a Generator.
// A nil Temperature selects the default of 0.2; zero is a valid setting.
type Config struct {
	APIKey               string
	Model                string
	Temperature          *float32
	Timeout              time.Duration
	MaxAttempts          int
	RetryInitialInterval time.Duration
}

func (c Config) normalized() Config {
	if c.Temperature == nil || *c.Temperature < 0 {
		t := float32(defaultTemperature)
		c.Temperature = &t
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultModelTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryInitialInterval <= 0 {
		c.RetryInitialInterval = defaultRetryInitialInterval
	}
	return c
}

// Option customizes a Generator.
type Option func(*Generator)

// WithModelClient injects the backend instead of building a Gemini client from the API key.
func WithModelClient(m ModelClient) Option {
	return func(g *Generator) { g.model = m }
}

// Generator turns article text into a validated quiz, falling back to Synthesize
// whenever the model path fails.
type Generator struct {
	model ModelClient
	cfg   Config
	log   logger.Logger
}

// NewGenerator builds a generator. Without an API key or injected client every
// call takes the fallback path.
func NewGenerator(ctx context.Context, cfg Config, log logger.Logger, opts ...Option) (*Generator, error) {
	g := &Generator{cfg: cfg.normalized(), log: logger.Ensure(log)}
	for _, opt := range opts {
		opt(g)
	}
	if g.model != nil {
		return g, nil
	}

	if g.cfg.APIKey == "" {
		g.log.WarnObj("gemini api key not set; quizzes will use fallback generation", "model_config", map[string]any{
			"model": g.cfg.Model,
		})
		return g, nil
	}

	client, err := NewGeminiClient(ctx, g.cfg.APIKey, g.cfg.Model)
	if err != nil {
		return nil, err
	}
	g.log.InfoObj("gemini client ready", "model_config", map[string]any{
		"model":        client.Model(),
		"temperature":  *g.cfg.Temperature,
		"max_attempts": g.cfg.MaxAttempts,
	})
	g.model = client
	return g, nil
}

// ModelConfigured reports whether a backend is wired.
func (g *Generator) ModelConfigured() bool {
	return g != nil && g.model != nil
}

// Generate produces the quiz payload for body. It never fails: any model, parse or
// validation error is logged and answered by Synthesize on the untruncated body.
func (g *Generator) Generate(ctx context.Context, body string) domain.GenerationResult {
	start := time.Now()
	result, err := g.generateWithModel(ctx, body)
	if err != nil {
		g.log.WarnObj("model generation failed; using fallback", "generation_error", map[string]any{
			"error":      err.Error(),
			"cause":      failureKind(err),
			"body_chars": utf8.RuneCountInString(body),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return Synthesize(body)
	}

	g.log.InfoObj("model generation succeeded", "generation_result", map[string]any{
		"questions":      len(result.Quiz),
		"related_topics": len(result.RelatedTopics),
		"elapsed_ms":     time.Since(start).Milliseconds(),
	})
	return result
}

func (g *Generator) generateWithModel(ctx context.Context, body string) (domain.GenerationResult, error) {
	if g.model == nil {
		return domain.GenerationResult{}, ErrModelUnavailable
	}

	req := ModelRequest{
		Prompt:      BuildPrompt(truncateRunes(body, MaxBodyChars)),
		Temperature: *g.cfg.Temperature,
		Schema:      ResponseSchema(),
	}
	raw, err := g.invoke(ctx, req)
	if err != nil {
		return domain.GenerationResult{}, err
	}

	result, err := ParseResponse(raw)
	if err != nil {
		return domain.GenerationResult{}, fmt.Errorf("parse model response: %w", err)
	}
	if len(result.Repairs) > 0 {
		g.log.DebugObj("model response repaired", "model_repairs", map[string]any{
			"repairs": result.Repairs,
		})
	}
	return result, nil
}

// invoke calls the model with a per-attempt timeout and bounded exponential backoff.
func (g *Generator) invoke(ctx context.Context, req ModelRequest) (string, error) {
	attempts := 0
	operation := func() (string, error) {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		text, err := g.model.Generate(callCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			return "", err
		}
		return text, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = g.cfg.RetryInitialInterval

	text, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(g.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			g.log.WarnObj("model call failed; retrying", "model_retry", map[string]any{
				"attempt": attempts,
				"wait_ms": wait.Milliseconds(),
				"error":   err.Error(),
			})
		}),
	)
	if err != nil {
		return "", &ModelInvocationError{Attempts: attempts, Err: err}
	}
	return text, nil
}

func failureKind(err error) string {
	var invocation *ModelInvocationError
	var validation *SchemaValidationError
	switch {
	case errors.Is(err, ErrModelUnavailable):
		return "model_unavailable"
	case errors.As(err, &invocation):
		return "model_invocation"
	case errors.Is(err, ErrNoJSON):
		return "no_json"
	case errors.As(err, &validation):
		return "schema_validation"
	default:
		return "unknown"
	}
}
