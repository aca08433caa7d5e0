package reconcile

import (
	"context"
	"time"

	domevent "github.com/paysys/payment-integration/internal/domain/event"
	domain "github.com/paysys/payment-integration/internal/domain/payment"
	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"
)

// Worker repairs payments whose remote confirmation succeeded but whose local
// processing->completed write failed. It only touches the local store; the
// remote ledger was already proven correct when the event was emitted.
type Worker struct {
	subscriber domevent.Subscriber
	repo       domain.Repository
	attempts   int
	delay      time.Duration
	log        observability.Logger
}

func New(subscriber domevent.Subscriber, repo domain.Repository, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		repo:       repo,
		attempts:   5,
		delay:      time.Second,
		log:        logger.With(observability.F("component", "reconcile_worker")),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domain.CompletionUnrecordedEvent{}.EventName(), w.handleCompletionUnrecorded)
}

func (w *Worker) handleCompletionUnrecorded(ctx context.Context, e domevent.Event) error {
	evt, ok := e.(domain.CompletionUnrecordedEvent)
	if !ok {
		return nil
	}

	logger := logctx.FromOr(ctx, w.log).With(observability.F("order_id", evt.OrderID))

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		wrote, err := w.repo.UpdateStatus(ctx, evt.OrderID, domain.StatusCompleted)
		if err == nil {
			// wrote=false means the record is already terminal (or gone);
			// either way there is nothing left to repair.
			logger.Info("completion_reconciled",
				observability.F("attempt", attempt),
				observability.F("write_occurred", wrote),
			)
			return nil
		}
		lastErr = err
		logger.Warn("completion_reconcile_attempt_failed",
			observability.F("attempt", attempt),
			observability.F("error", err.Error()),
		)

		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return lastErr
		}
	}

	logger.Error("completion_reconcile_exhausted",
		observability.F("attempts", w.attempts),
		observability.F("error", lastErr.Error()),
	)
	return lastErr
}
