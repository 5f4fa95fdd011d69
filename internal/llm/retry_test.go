package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/wunjo/internal/apperr"
)

type sleepRecorder struct{ delays []time.Duration }

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func (s *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func providerErr(kind error) error {
	return &apperr.ProviderError{Kind: kind, Provider: "fake"}
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, Backoff(0))
	assert.Equal(t, 2*time.Second, Backoff(1))
	assert.Equal(t, 4*time.Second, Backoff(2))
}

func TestRetrier_InvalidCredentialsNotRetried(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_, err := Retrier{Sleep: rec.sleep}.Do(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		return "", providerErr(apperr.ErrInvalidCredentials)
	})

	require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestRetrier_NonRetryableKinds(t *testing.T) {
	for _, kind := range []error{
		apperr.ErrPermissionDenied,
		apperr.ErrMalformedRequest,
		apperr.ErrContentFiltered,
		apperr.ErrParseFailure,
	} {
		t.Run(kind.Error(), func(t *testing.T) {
			calls := 0
			_, err := Retrier{Sleep: (&sleepRecorder{}).sleep}.Do(context.Background(), 3, func(context.Context) (string, error) {
				calls++
				return "", providerErr(kind)
			})
			require.ErrorIs(t, err, kind)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetrier_SucceedsOnThirdAttempt(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	text, err := Retrier{Sleep: rec.sleep}.Do(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", providerErr(apperr.ErrRateLimited)
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.delays)
	assert.GreaterOrEqual(t, rec.total(), 3*time.Second)
}

func TestRetrier_ExhaustedReturnsLastError(t *testing.T) {
	rec := &sleepRecorder{}
	calls := 0
	_, err := Retrier{Sleep: rec.sleep}.Do(context.Background(), 3, func(context.Context) (string, error) {
		calls++
		if calls == 3 {
			return "", providerErr(apperr.ErrServiceUnavailable)
		}
		return "", providerErr(apperr.ErrRateLimited)
	})

	require.ErrorIs(t, err, apperr.ErrServiceUnavailable)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2)
}

func TestRetrier_ZeroMeansOneAttempt(t *testing.T) {
	calls := 0
	_, err := Retrier{Sleep: (&sleepRecorder{}).sleep}.Do(context.Background(), 0, func(context.Context) (string, error) {
		calls++
		return "", providerErr(apperr.ErrRateLimited)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetrier_CancelDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retrier{}.Do(ctx, 5, func(context.Context) (string, error) {
		calls++
		cancel()
		return "", providerErr(apperr.ErrRateLimited)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestSleep_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	err := Sleep(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}
