package textgen

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// GuardOptions configures a Guard.
type GuardOptions struct {
	// Timeout bounds each attempt.
	Timeout time.Duration
	// MaxAttempts is the total number of tries, at least one.
	MaxAttempts int
	// Backoff is the wait before the second attempt; later waits grow linearly.
	Backoff time.Duration
	Logger  *slog.Logger
}

// Guard wraps a Summarizer so that no call outlives its timeout, even when
// the backend ignores cancellation, and transient failures are retried.
type Guard struct {
	next Summarizer
	opts GuardOptions
}

// NewGuard wraps next.
func NewGuard(next Summarizer, optFns ...func(o *GuardOptions)) *Guard {
	opts := GuardOptions{
		Timeout:     10 * time.Second,
		MaxAttempts: 2,
		Backoff:     200 * time.Millisecond,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Guard{next: next, opts: opts}
}

// Summarize tries the wrapped backend until it returns non-empty text, the
// attempts run out or ctx ends.
func (g *Guard) Summarize(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		text, err := g.attempt(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == g.opts.MaxAttempts {
			break
		}
		g.opts.Logger.Debug("summarize attempt failed", "attempt", attempt, "error", err)
		select {
		case <-time.After(g.opts.Backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return "", fmt.Errorf("summarize: %w", ctx.Err())
		}
	}
	return "", fmt.Errorf("summarize: %w", lastErr)
}

type result struct {
	text string
	err  error
}

func (g *Guard) attempt(ctx context.Context, prompt string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		text, err := g.next.Summarize(actx, prompt)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", r.err
		}
		text := strings.TrimSpace(r.text)
		if text == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	case <-actx.Done():
		return "", actx.Err()
	}
}
