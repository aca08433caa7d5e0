package payment

import (
	"context"
	"errors"
	"time"

	domevent "github.com/paysys/payment-integration/internal/domain/event"
	domain "github.com/paysys/payment-integration/internal/domain/payment"
	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	useCaseCompletePayment  = "payment.complete"
	completePaymentSpanName = "CompletePayment"
)

// ErrCompleteFailed is returned for both "no such payment" and "already
// completed". The caller cannot tell them apart, and the remote confirm is
// never attempted in either case. The message text is part of the API
// surface and is reproduced verbatim to callers.
var ErrCompleteFailed = errors.New("Complete payment failed")

type CompletePaymentInput struct {
	OrderID string
}

type CompletePaymentResult struct {
	OrderID string
}

// CompletePaymentUseCase finalizes a reservation. The pending->processing
// claim is the one serialization point: whoever wins that conditional write
// is the only caller that talks to the remote ledger. A failed confirm leaves
// the record in processing on purpose; rolling back to pending would let a
// later attempt re-confirm funds whose remote state is unknown.
type CompletePaymentUseCase struct {
	repo       domain.Repository
	balance    BalanceClient
	events     domevent.Publisher
	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

// NewCompletePaymentUseCase wires the use case. events may be nil when no
// reconciler is running; internal inconsistencies are then only logged.
func NewCompletePaymentUseCase(repo domain.Repository, balance BalanceClient, events domevent.Publisher, tel observability.Observability) *CompletePaymentUseCase {
	baseLog := observability.NopLogger().With(
		observability.F("service", paymentService),
	)
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger().With(
			observability.F("service", paymentService),
		)
		metricsProvider = tel.Metrics()
	}

	return &CompletePaymentUseCase{
		repo:       repo,
		balance:    balance,
		events:     events,
		tel:        tel,
		log:        baseLog,
		reqCounter: metricsProvider.Counter(observability.MUsecaseRequests),
		durHist:    metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

func (uc *CompletePaymentUseCase) Execute(ctx context.Context, cmd CompletePaymentInput) (_ *CompletePaymentResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCompletePayment),
		observability.F("order_id", cmd.OrderID),
	)

	tracer := observability.NopTracer()
	if uc.tel != nil {
		tracer = uc.tel.Tracer()
	}

	ctx, span := tracer.Start(ctx, spanPrefix+completePaymentSpanName,
		attribute.String("use_case", useCaseCompletePayment),
		attribute.String("order.id", cmd.OrderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		if span != nil {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, statusText)
			} else {
				span.SetStatus(codes.Ok, statusText)
			}
			span.End()
		}

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseCompletePayment),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(latency,
			observability.L("use_case", useCaseCompletePayment),
		)

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.OrderID == "" {
		outcome, statusText = "error", "ORDER_ID_REQUIRED"
		return nil, domain.ErrOrderIDRequired
	}

	claimed, err := uc.repo.UpdateStatus(ctx, cmd.OrderID, domain.StatusProcessing)
	if err != nil {
		outcome, statusText = "error", "STORE_UPDATE_FAILED"
		return nil, err
	}
	if !claimed {
		outcome, statusText = "error", "GUARD_REJECTED"
		return nil, ErrCompleteFailed
	}

	if err = uc.balance.Confirm(ctx, cmd.OrderID); err != nil {
		// Deliberately no rollback: the remote side's true state is unknown
		// after a failed or timed-out confirm. The record stays in
		// processing until reconciled.
		outcome, statusText = "error", "CONFIRM_FAILED"
		logger.Warn("confirm_failed_payment_left_processing",
			observability.F("error", err.Error()),
		)
		return nil, err
	}

	wrote, updateErr := uc.repo.UpdateStatus(ctx, cmd.OrderID, domain.StatusCompleted)
	if updateErr != nil || !wrote {
		// The ledger confirmed, so the operation succeeded no matter what the
		// local store says. Hand the repair to the reconciler.
		statusText = "COMPLETED_UNRECORDED"
		logger.Error("completion_unrecorded",
			observability.F("write_occurred", wrote),
			observability.F("error", errString(updateErr)),
		)
		if updateErr != nil && uc.events != nil {
			if pubErr := uc.events.Publish(ctx, domain.NewCompletionUnrecordedEvent(cmd.OrderID)); pubErr != nil {
				logger.Error("completion_unrecorded_publish_failed",
					observability.F("error", pubErr.Error()),
				)
			}
		}
	}

	return &CompletePaymentResult{OrderID: cmd.OrderID}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
