package providers

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/oddsflow/swarm/internal/ports"
)

// timeoutCompleter enforces a per-request timeout so a hung provider never
// stalls the whole fan-out.
type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that bounds each request to the
// given duration. A timed-out call surfaces as a classified timeout error
// and degrades like any other failure.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Completer) Completer {
		return &timeoutCompleter{next: next, timeout: timeout}
	}
}

func (t *timeoutCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Complete(ctx, prompt)
}

func (t *timeoutCompleter) Model() string { return t.next.Model() }

// rateLimitCompleter smooths outbound request bursts with a token bucket.
type rateLimitCompleter struct {
	next    Completer
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware that limits requests to rps with
// the given burst. Waiting respects context cancellation.
func RateLimitMiddleware(rps float64, burst int) Middleware {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next Completer) Completer {
		return &rateLimitCompleter{next: next, limiter: limiter}
	}
}

func (r *rateLimitCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.next.Complete(ctx, prompt)
}

func (r *rateLimitCompleter) Model() string { return r.next.Model() }

// retryCompleter retries transient provider failures with jittered
// exponential backoff.
type retryCompleter struct {
	next        Completer
	maxAttempts int
	baseDelay   time.Duration
}

// maxBackoffShift bounds the exponential backoff doubling so the shifted
// delay cannot overflow int64 regardless of the configured attempt count.
const maxBackoffShift = 30

// RetryMiddleware creates middleware that retries retryable ProviderErrors
// up to maxAttempts total attempts. Non-retryable errors (authentication,
// bad request) fail immediately.
func RetryMiddleware(maxAttempts int, baseDelay time.Duration) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return func(next Completer) Completer {
		return &retryCompleter{next: next, maxAttempts: maxAttempts, baseDelay: baseDelay}
	}
}

func (r *retryCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		response, err := r.next.Complete(ctx, prompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		var provErr *ProviderError
		if !errors.As(err, &provErr) || !provErr.IsRetryable() {
			return "", err
		}
	}

	return "", lastErr
}

func (r *retryCompleter) Model() string { return r.next.Model() }

// backoff returns the jittered delay before the given retry attempt
// (attempt >= 1). The doubling is capped so the shift never overflows.
func (r *retryCompleter) backoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	delay := r.baseDelay << shift
	// Full jitter keeps concurrent retries from re-aligning.
	return time.Duration(rand.Int63n(int64(delay))) + delay/2 // #nosec G404
}

// tracingCompleter records one span per provider request.
type tracingCompleter struct {
	next    Completer
	tracer  trace.Tracer
	agentID string
}

// TracingMiddleware creates middleware that wraps each request in an
// OpenTelemetry span annotated with the agent and model.
func TracingMiddleware(tracer trace.Tracer, agentID string) Middleware {
	return func(next Completer) Completer {
		return &tracingCompleter{next: next, tracer: tracer, agentID: agentID}
	}
}

func (t *tracingCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, span := t.tracer.Start(ctx, "provider.complete",
		trace.WithAttributes(
			attribute.String("swarm.agent_id", t.agentID),
			attribute.String("swarm.model", t.next.Model()),
			attribute.Int("swarm.prompt_chars", len(prompt)),
		))
	defer span.End()

	response, err := t.next.Complete(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.Int("swarm.response_chars", len(response)))
	return response, nil
}

func (t *tracingCompleter) Model() string { return t.next.Model() }

// metricsCompleter records request durations and failure counts.
type metricsCompleter struct {
	next      Completer
	collector ports.MetricsCollector
	agentID   string
	provider  string
}

// MetricsMiddleware creates middleware that reports per-request latency and
// outcome through the metrics collector.
func MetricsMiddleware(collector ports.MetricsCollector, agentID, provider string) Middleware {
	return func(next Completer) Completer {
		return &metricsCompleter{next: next, collector: collector, agentID: agentID, provider: provider}
	}
}

func (m *metricsCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	started := time.Now()
	response, err := m.next.Complete(ctx, prompt)

	labels := map[string]string{"agent": m.agentID, "provider": m.provider}
	m.collector.RecordLatency("provider_request", time.Since(started), labels)

	status := "success"
	if err != nil {
		status = "error"
	}
	labels["status"] = status
	m.collector.RecordCounter("provider_requests_total", 1, labels)

	return response, err
}

func (m *metricsCompleter) Model() string { return m.next.Model() }
