package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/paysys/payment-integration/internal/domain/payment"
)

// PaymentRepository is an in-memory store for local runs and tests. The
// single mutex plays the role the unique index plays in the SQL store: both
// the duplicate check and the conditional status write happen atomically
// inside it, never as check-then-write in the caller.
type PaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment // keyed by order id
}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (string, error) {
	_ = ctx
	if p == nil || p.ID == "" {
		return "", fmt.Errorf("payment repository: id is required")
	}
	if p.OrderID == "" {
		return "", domain.ErrOrderIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.payments[p.OrderID]; exists {
		return "", domain.ErrDuplicateOrder
	}

	r.payments[p.OrderID] = p.Clone()
	return p.ID, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, orderID string, target domain.Status) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[orderID]
	if !ok {
		return false, nil
	}
	if p.Status.Terminal() || p.Status == target {
		return false, nil
	}

	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Get returns a copy of the stored record. Not part of the store contract;
// tests use it to inspect state after a run.
func (r *PaymentRepository) Get(orderID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.payments[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}
