package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/wunjo/internal/apperr"
)

// DefaultMaxRetries is the attempt budget used when none is configured.
const DefaultMaxRetries = 3

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the real SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait after a failed attempt (0-based): 1s, 2s, 4s, ...
func Backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * time.Second
}

// Retrier runs a send function under the retry policy.
type Retrier struct {
	Sleep  SleepFunc
	Logger *slog.Logger
}

// Do calls send up to maxRetries times. Errors that apperr.Retryable rejects
// are returned on first occurrence; a done context stops the loop.
func (r Retrier) Do(ctx context.Context, maxRetries int, send func(context.Context) (string, error)) (string, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		text, err := send(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil || !apperr.Retryable(err) || attempt == maxRetries-1 {
			break
		}

		delay := Backoff(attempt)
		logger.Warn("llm: retrying",
			slog.Int("attempt", attempt+1),
			slog.String("delay", delay.String()),
			slog.String("error", err.Error()),
		)
		if serr := sleep(ctx, delay); serr != nil {
			return "", serr
		}
	}
	return "", lastErr
}
