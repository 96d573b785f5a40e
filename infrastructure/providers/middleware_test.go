package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompleter struct {
	calls    int
	failFor  int
	failWith error
}

func (c *countingCompleter) Complete(context.Context, string) (string, error) {
	c.calls++
	if c.calls <= c.failFor {
		return "", c.failWith
	}
	return "ok", nil
}

func (c *countingCompleter) Model() string { return "counting" }

func TestRetryMiddlewareRetriesRetryableErrors(t *testing.T) {
	base := &countingCompleter{
		failFor:  2,
		failWith: NewProviderError("openai", ErrorTypeServerError, 500, "flaky", nil),
	}
	completer := RetryMiddleware(3, time.Millisecond)(base)

	response, err := completer.Complete(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", response)
	assert.Equal(t, 3, base.calls)
}

func TestRetryMiddlewareStopsOnNonRetryable(t *testing.T) {
	base := &countingCompleter{
		failFor:  10,
		failWith: NewProviderError("openai", ErrorTypeAuthentication, 401, "bad key", nil),
	}
	completer := RetryMiddleware(3, time.Millisecond)(base)

	_, err := completer.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 1, base.calls)
}

func TestRetryMiddlewareExhaustsAttempts(t *testing.T) {
	base := &countingCompleter{
		failFor:  10,
		failWith: NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil),
	}
	completer := RetryMiddleware(3, time.Millisecond)(base)

	_, err := completer.Complete(context.Background(), "hi")
	require.Error(t, err)
	assert.Equal(t, 3, base.calls)
}

func TestRetryMiddlewareHonorsContextDuringBackoff(t *testing.T) {
	base := &countingCompleter{
		failFor:  10,
		failWith: NewProviderError("openai", ErrorTypeServerError, 500, "down", nil),
	}
	completer := RetryMiddleware(5, time.Hour)(base)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := completer.Complete(ctx, "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, base.calls)
}

func TestRetryBackoffCappedForLargeAttempts(t *testing.T) {
	r := &retryCompleter{baseDelay: time.Second}

	// Past the cap the delay stops growing instead of overflowing int64
	// (which would make the jitter draw panic).
	ceiling := 2 * (time.Second << maxBackoffShift)
	for _, attempt := range []int{1, 10, maxBackoffShift + 1, 100, 10_000} {
		delay := r.backoff(attempt)
		assert.Greater(t, delay, time.Duration(0), "attempt %d", attempt)
		assert.LessOrEqual(t, delay, ceiling, "attempt %d", attempt)
	}
}

func TestTimeoutMiddlewareBoundsSlowCalls(t *testing.T) {
	slow := completerFunc{
		fn: func(ctx context.Context, _ string) (string, error) {
			select {
			case <-time.After(time.Second):
				return "too late", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		},
		model: func() string { return "slow" },
	}

	completer := TimeoutMiddleware(10 * time.Millisecond)(slow)
	_, err := completer.Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestErrorClassifier(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "openai"}

	tests := []struct {
		status    int
		wantType  ErrorType
		retryable bool
	}{
		{401, ErrorTypeAuthentication, false},
		{403, ErrorTypeAuthentication, false},
		{404, ErrorTypeNotFound, false},
		{422, ErrorTypeBadRequest, false},
		{429, ErrorTypeRateLimit, true},
		{500, ErrorTypeServerError, true},
		{503, ErrorTypeServerError, true},
	}

	for _, tt := range tests {
		err := classifier.ClassifyHTTPError(tt.status, "msg", nil)
		assert.Equal(t, tt.wantType, err.Type, "status %d", tt.status)
		assert.Equal(t, tt.retryable, err.IsRetryable(), "status %d", tt.status)
	}
}

func TestClassifyContextError(t *testing.T) {
	classifier := &ErrorClassifier{Provider: "google"}

	assert.Equal(t, ErrorTypeTimeout, classifier.ClassifyContextError(context.DeadlineExceeded).Type)
	assert.Equal(t, ErrorTypeNetwork, classifier.ClassifyContextError(context.Canceled).Type)
}
