package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/jordanhubbard/statshub/internal/metrics"
	"github.com/jordanhubbard/statshub/internal/providers"
)

const defaultUpstreamTimeout = 12 * time.Second

// panicError carries a recovered panic out of an upstream call.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

// call runs one upstream request under its own deadline, converts the
// outcome into a Result and records it. Panics in fn become an unexpected
// failure carrying a *panicError.
func call[T any](ctx context.Context, d Dependencies, timeout time.Duration, provider, op string, fn func(context.Context) (T, error)) (res providers.Result[T]) {
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if v := recover(); v != nil {
			res = providers.Failed[T](&providers.AggregationError{
				Kind:     providers.FailureUnexpected,
				Provider: provider,
				Msg:      fmt.Sprintf("panic: %v", v),
				Err:      &panicError{value: v, stack: debug.Stack()},
			})
		}
		d.observeCall(ctx, provider, op, res.Err, time.Since(start))
	}()

	v, err := fn(ctx)
	if err != nil {
		return providers.Failed[T](providers.Classify(provider, err))
	}
	return providers.Succeeded(v)
}

func (d Dependencies) observeCall(ctx context.Context, provider, op string, failure *providers.AggregationError, elapsed time.Duration) {
	latencyMs := float64(elapsed.Microseconds()) / 1000

	outcome := metrics.OutcomeOK
	if failure != nil {
		outcome = string(failure.Kind)
	}
	if d.Metrics != nil {
		d.Metrics.UpstreamRequests.WithLabelValues(provider, outcome).Inc()
		d.Metrics.UpstreamLatency.WithLabelValues(provider).Observe(latencyMs)
	}
	if d.Health != nil {
		if failure == nil {
			d.Health.RecordSuccess(provider, latencyMs)
		} else {
			d.Health.RecordError(provider, failure.Error())
		}
	}

	if failure == nil {
		d.logger().DebugContext(ctx, "upstream call ok",
			slog.String("provider", provider),
			slog.String("op", op),
			slog.Float64("latency_ms", latencyMs),
		)
		return
	}
	attrs := []any{
		slog.String("provider", provider),
		slog.String("op", op),
		slog.String("kind", string(failure.Kind)),
		slog.Float64("latency_ms", latencyMs),
		slog.String("error", errorText(failure)),
	}
	var se *providers.StatusError
	if errors.As(failure, &se) {
		attrs = append(attrs, slog.Int("status", se.StatusCode))
		if se.RetryAfterSecs > 0 {
			attrs = append(attrs, slog.Int("retry_after_secs", se.RetryAfterSecs))
		}
	}
	d.logger().WarnContext(ctx, "upstream call failed", attrs...)
}

func errorText(e *providers.AggregationError) string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Error()
}

// recoveredPanic returns the first panic carried by any of the failures.
func recoveredPanic(failures ...*providers.AggregationError) *panicError {
	for _, f := range failures {
		if f == nil {
			continue
		}
		var pe *panicError
		if errors.As(f, &pe) {
			return pe
		}
	}
	return nil
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
