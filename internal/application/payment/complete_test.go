package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	apppayment "github.com/paysys/payment-integration/internal/application/payment"
	domevent "github.com/paysys/payment-integration/internal/domain/event"
	domain "github.com/paysys/payment-integration/internal/domain/payment"
	"github.com/paysys/payment-integration/internal/infrastructure/persistence/memory"
	"github.com/paysys/payment-integration/internal/observability"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domevent.Event
}

func (p *capturePublisher) Publish(ctx context.Context, e domevent.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) published() []domevent.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domevent.Event(nil), p.events...)
}

// failOnCompleteRepo delegates to the in-memory store but fails the
// processing->completed write, simulating a store outage after confirm.
type failOnCompleteRepo struct {
	*memory.PaymentRepository
	failErr error
}

func (r *failOnCompleteRepo) UpdateStatus(ctx context.Context, orderID string, target domain.Status) (bool, error) {
	if target == domain.StatusCompleted && r.failErr != nil {
		return false, r.failErr
	}
	return r.PaymentRepository.UpdateStatus(ctx, orderID, target)
}

func seedPayment(t *testing.T, repo *memory.PaymentRepository, orderID string) {
	t.Helper()
	p, err := domain.New("payment123", orderID, 100)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), p)
	require.NoError(t, err)
}

func TestCompletePayment_Success(t *testing.T) {
	repo := memory.NewPaymentRepository()
	seedPayment(t, repo, "order123")
	balanceAPI := &fakeBalance{}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, nil, observability.Nop())

	result, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.NoError(t, err)
	require.Equal(t, "order123", result.OrderID)
	require.EqualValues(t, 1, balanceAPI.confirmCalls.Load())

	stored, err := repo.Get("order123")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestCompletePayment_UnknownOrder_NeverConfirms(t *testing.T) {
	repo := memory.NewPaymentRepository()
	balanceAPI := &fakeBalance{}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, nil, observability.Nop())

	_, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.ErrorIs(t, err, apppayment.ErrCompleteFailed)
	require.EqualError(t, err, "Complete payment failed")
	require.EqualValues(t, 0, balanceAPI.confirmCalls.Load())
}

func TestCompletePayment_SecondCallFails_ConfirmOnlyOnce(t *testing.T) {
	repo := memory.NewPaymentRepository()
	seedPayment(t, repo, "order123")
	balanceAPI := &fakeBalance{}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, nil, observability.Nop())

	_, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.NoError(t, err)

	// The record is completed now, so the terminal-state guard rejects the
	// second attempt before any remote call.
	_, err = uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.ErrorIs(t, err, apppayment.ErrCompleteFailed)
	require.EqualValues(t, 1, balanceAPI.confirmCalls.Load())
}

func TestCompletePayment_ConfirmFailure_StaysProcessing(t *testing.T) {
	repo := memory.NewPaymentRepository()
	seedPayment(t, repo, "order123")
	balanceAPI := &fakeBalance{confirmErr: errors.New("API error")}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, nil, observability.Nop())

	_, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.EqualError(t, err, "API error")
	require.EqualValues(t, 1, balanceAPI.confirmCalls.Load())

	// No rollback to pending: the remote state is unknown.
	stored, getErr := repo.Get("order123")
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestCompletePayment_CompletedWriteFailure_StillSucceeds(t *testing.T) {
	inner := memory.NewPaymentRepository()
	seedPayment(t, inner, "order123")
	repo := &failOnCompleteRepo{PaymentRepository: inner, failErr: errors.New("store down")}
	balanceAPI := &fakeBalance{}
	publisher := &capturePublisher{}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, publisher, observability.Nop())

	// The ledger confirmed, so the caller sees success even though the local
	// record could not be advanced.
	result, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
	require.NoError(t, err)
	require.Equal(t, "order123", result.OrderID)

	events := publisher.published()
	require.Len(t, events, 1)
	evt, ok := events[0].(domain.CompletionUnrecordedEvent)
	require.True(t, ok)
	require.Equal(t, "order123", evt.OrderID)

	stored, getErr := inner.Get("order123")
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestCompletePayment_ConcurrentAttempts_OneWinner(t *testing.T) {
	repo := memory.NewPaymentRepository()
	seedPayment(t, repo, "order123")
	balanceAPI := &fakeBalance{}
	uc := apppayment.NewCompletePaymentUseCase(repo, balanceAPI, nil, observability.Nop())

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), apppayment.CompletePaymentInput{OrderID: "order123"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, apppayment.ErrCompleteFailed)
		}
	}
	require.Equal(t, 1, succeeded)
	require.EqualValues(t, 1, balanceAPI.confirmCalls.Load())
}
