// Package textgen produces short free-text summaries from prompts. Backends
// wrap hosted language models; Guard bounds every call in time and attempts.
package textgen

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a backend answers with no text.
var ErrEmptyResponse = errors.New("textgen: empty response")

// Summarizer turns a prompt into text. Calls may fail transiently.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Func adapts a function to Summarizer.
type Func func(ctx context.Context, prompt string) (string, error)

// Summarize calls f(ctx, prompt).
func (f Func) Summarize(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

// Static answers every prompt with the same text, or the same error.
type Static struct {
	Text string
	Err  error
}

// Summarize returns s.Text or s.Err.
func (s Static) Summarize(ctx context.Context, prompt string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}
