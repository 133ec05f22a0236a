package quizgen

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

// ErrModelUnavailable is reported when no generative backend is configured.
var ErrModelUnavailable = errors.New("generative model not configured")

// ModelRequest is a single prompt sent to the generative backend.
type ModelRequest struct {
	Prompt      string
	Temperature float32
	Schema      *genai.Schema
}

// ModelClient abstracts the generative backend so tests can inject fakes.
type ModelClient interface {
	Generate(ctx context.Context, req ModelRequest) (string, error)
}

// ModelInvocationError wraps a failed call to the generative backend.
type ModelInvocationError struct {
	Attempts int
	Err      error
}

func (e *ModelInvocationError) Error() string {
	return "model invocation failed: " + e.Err.Error()
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }
