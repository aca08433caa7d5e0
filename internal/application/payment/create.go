package payment

import (
	"context"
	"time"

	domain "github.com/paysys/payment-integration/internal/domain/payment"
	"github.com/paysys/payment-integration/internal/observability"
	"github.com/paysys/payment-integration/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	paymentService        = "payment-service"
	spanPrefix            = "UC."
	useCaseCreatePayment  = "payment.create"
	createPaymentSpanName = "CreatePayment"
)

type CreatePaymentInput struct {
	OrderID string
	Amount  int64
}

type CreatePaymentResult struct {
	PaymentID string
}

// CreatePaymentUseCase reserves funds remotely and records the payment
// locally. The ordering is the whole point: nothing is persisted until the
// remote reserve has succeeded, so a local record always proves a remote
// reservation. The reverse gap (remote reserved, local insert hit a
// duplicate) is surfaced to the caller, not hidden.
type CreatePaymentUseCase struct {
	repo       domain.Repository
	balance    BalanceClient
	ids        IDGenerator
	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.Histogram
}

func NewCreatePaymentUseCase(repo domain.Repository, balance BalanceClient, ids IDGenerator, tel observability.Observability) *CreatePaymentUseCase {
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

	return &CreatePaymentUseCase{
		repo:       repo,
		balance:    balance,
		ids:        ids,
		tel:        tel,
		log:        baseLog,
		reqCounter: metricsProvider.Counter(observability.MUsecaseRequests),
		durHist:    metricsProvider.Histogram(observability.MUsecaseDuration),
	}
}

func (uc *CreatePaymentUseCase) Execute(ctx context.Context, cmd CreatePaymentInput) (_ *CreatePaymentResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCaseCreatePayment),
		observability.F("order_id", cmd.OrderID),
		observability.F("amount", cmd.Amount),
	)

	tracer := observability.NopTracer()
	if uc.tel != nil {
		tracer = uc.tel.Tracer()
	}

	ctx, span := tracer.Start(ctx, spanPrefix+createPaymentSpanName,
		attribute.String("use_case", useCaseCreatePayment),
		attribute.String("order.id", cmd.OrderID),
		attribute.Int64("payment.amount", cmd.Amount),
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
			observability.L("use_case", useCaseCreatePayment),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(latency,
			observability.L("use_case", useCaseCreatePayment),
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
	if cmd.Amount <= 0 {
		outcome, statusText = "error", "AMOUNT_INVALID"
		return nil, domain.ErrInvalidAmount
	}

	// Remote first. No local state may exist without a confirmed reservation.
	if err = uc.balance.Reserve(ctx, cmd.OrderID, cmd.Amount); err != nil {
		outcome, statusText = "error", "RESERVE_FAILED"
		return nil, err
	}

	entity, err := domain.New(uc.ids.NewID(), cmd.OrderID, cmd.Amount)
	if err != nil {
		outcome, statusText = "error", "ENTITY_INVALID"
		return nil, err
	}

	paymentID, err := uc.repo.Create(ctx, entity)
	if err != nil {
		// The duplicate case means the remote reserve just re-ran for an
		// order that already has a payment. Whether the remote side treats
		// that as idempotent is its contract, not ours; we report the
		// conflict instead of merging.
		if err == domain.ErrDuplicateOrder {
			outcome, statusText = "error", "DUPLICATE_ORDER"
		} else {
			outcome, statusText = "error", "STORE_CREATE_FAILED"
		}
		return nil, err
	}

	return &CreatePaymentResult{PaymentID: paymentID}, nil
}
