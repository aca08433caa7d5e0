package balance

import (
	"context"
	"time"

	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"
)

// RetryPolicy re-runs an operation on transient failures, waiting a fixed
// delay between attempts. It is deliberately generic: the predicate is the
// only coupling to the transport's error shape, so any remote call can be
// wrapped with the same policy.
type RetryPolicy struct {
	maxRetries  int
	delay       time.Duration
	isTransient func(error) bool
	log         observability.Logger
}

// NewRetryPolicy builds a policy with maxRetries additional attempts after
// the first call. Non-transient failures are returned immediately; exhausting
// the budget returns the last failure unchanged.
func NewRetryPolicy(maxRetries int, delay time.Duration, isTransient func(error) bool, logger observability.Logger) *RetryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &RetryPolicy{
		maxRetries:  maxRetries,
		delay:       delay,
		isTransient: isTransient,
		log:         logger.With(observability.F("component", "retry_policy")),
	}
}

// Do invokes fn until it succeeds, fails permanently, or the retry budget is
// spent. target names the wrapped operation for the per-attempt log line.
func (p *RetryPolicy) Do(ctx context.Context, target string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.maxRetries || p.isTransient == nil || !p.isTransient(err) {
			return err
		}

		logctx.FromOr(ctx, p.log).Info("retry_attempt",
			observability.F("target", target),
			observability.F("attempt", attempt+1),
			observability.F("delay_seconds", p.delay.Seconds()),
			observability.F("error", err.Error()),
		)

		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return err
		}
	}
}
