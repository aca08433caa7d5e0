package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/paysys/payment-integration/internal/domain/payment"
	"github.com/paysys/payment-integration/internal/infrastructure/persistence/memory"
)

// flakyRepo fails UpdateStatus a fixed number of times before delegating.
type flakyRepo struct {
	*memory.PaymentRepository
	failures int
}

func (r *flakyRepo) UpdateStatus(ctx context.Context, orderID string, target domain.Status) (bool, error) {
	if r.failures > 0 {
		r.failures--
		return false, errors.New("store down")
	}
	return r.PaymentRepository.UpdateStatus(ctx, orderID, target)
}

func seedProcessing(t *testing.T, repo *memory.PaymentRepository, orderID string) {
	t.Helper()
	p, err := domain.New("p1", orderID, 100)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), p)
	require.NoError(t, err)
	wrote, err := repo.UpdateStatus(context.Background(), orderID, domain.StatusProcessing)
	require.NoError(t, err)
	require.True(t, wrote)
}

func TestWorker_RepairsAfterTransientStoreFailure(t *testing.T) {
	inner := memory.NewPaymentRepository()
	seedProcessing(t, inner, "order123")
	repo := &flakyRepo{PaymentRepository: inner, failures: 2}

	w := New(nil, repo, nil)
	w.delay = time.Millisecond

	err := w.handleCompletionUnrecorded(context.Background(), domain.NewCompletionUnrecordedEvent("order123"))
	require.NoError(t, err)

	stored, err := inner.Get("order123")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, stored.Status)
}

func TestWorker_AlreadyRepairedIsFine(t *testing.T) {
	inner := memory.NewPaymentRepository()
	seedProcessing(t, inner, "order123")
	wrote, err := inner.UpdateStatus(context.Background(), "order123", domain.StatusCompleted)
	require.NoError(t, err)
	require.True(t, wrote)

	w := New(nil, inner, nil)
	w.delay = time.Millisecond

	// UpdateStatus returns false on the terminal record; nothing to repair.
	err = w.handleCompletionUnrecorded(context.Background(), domain.NewCompletionUnrecordedEvent("order123"))
	require.NoError(t, err)
}

func TestWorker_ExhaustsAttempts(t *testing.T) {
	inner := memory.NewPaymentRepository()
	seedProcessing(t, inner, "order123")
	repo := &flakyRepo{PaymentRepository: inner, failures: 100}

	w := New(nil, repo, nil)
	w.attempts = 3
	w.delay = time.Millisecond

	err := w.handleCompletionUnrecorded(context.Background(), domain.NewCompletionUnrecordedEvent("order123"))
	require.EqualError(t, err, "store down")

	stored, getErr := inner.Get("order123")
	require.NoError(t, getErr)
	require.Equal(t, domain.StatusProcessing, stored.Status)
}

func TestWorker_IgnoresForeignEvents(t *testing.T) {
	w := New(nil, memory.NewPaymentRepository(), nil)

	err := w.handleCompletionUnrecorded(context.Background(), fakeEvent{})
	require.NoError(t, err)
}

type fakeEvent struct{}

func (fakeEvent) EventName() string { return "something.else" }
