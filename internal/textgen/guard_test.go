package textgen

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastGuard(next Summarizer, attempts int) *Guard {
	return NewGuard(next, func(o *GuardOptions) {
		o.Timeout = 50 * time.Millisecond
		o.MaxAttempts = attempts
		o.Backoff = time.Millisecond
	})
}

func TestGuardRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	backend := Func(func(ctx context.Context, prompt string) (string, error) {
		if calls.Add(1) == 1 {
			return "", errors.New("503 unavailable")
		}
		return "  Blood pressure is dangerously high.  ", nil
	})

	text, err := fastGuard(backend, 2).Summarize(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "Blood pressure is dangerously high.", text)
	assert.EqualValues(t, 2, calls.Load())
}

func TestGuardTimesOutBackendIgnoringContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	backend := Func(func(ctx context.Context, prompt string) (string, error) {
		<-release
		return "late", nil
	})

	start := time.Now()
	_, err := fastGuard(backend, 1).Summarize(context.Background(), "p")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuardRejectsEmptyText(t *testing.T) {
	_, err := fastGuard(Static{Text: " \n"}, 3).Summarize(context.Background(), "p")
	require.ErrorIs(t, err, ErrEmptyResponse)
}

func TestGuardStopsOnCancelledContext(t *testing.T) {
	var calls atomic.Int32
	backend := Func(func(ctx context.Context, prompt string) (string, error) {
		calls.Add(1)
		return "", errors.New("boom")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fastGuard(backend, 5).Summarize(ctx, "p")
	require.Error(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}
