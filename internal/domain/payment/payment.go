package payment

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("payment: not found")
	ErrDuplicateOrder  = errors.New("payment: order already has a payment")
	ErrOrderIDRequired = errors.New("payment: order id is required")
	ErrInvalidAmount   = errors.New("payment: amount must be greater than zero")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Payment is the local durable record of a fund reservation against an order.
// OrderID is the idempotency anchor: at most one payment exists per order.
// Status only ever moves forward (pending -> processing -> completed) and
// completed is terminal.
type Payment struct {
	ID        string
	OrderID   string
	Amount    int64
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds a pending payment. OrderID and Amount are immutable afterwards.
// Amount is in minor units and must be positive; the transport layer validates
// this too, but the entity refuses bad input regardless of the caller.
func New(id, orderID string, amount int64) (*Payment, error) {
	if orderID == "" {
		return nil, ErrOrderIDRequired
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now().UTC()
	return &Payment{
		ID:        id,
		OrderID:   orderID,
		Amount:    amount,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool { return s == StatusCompleted }

func (p *Payment) Clone() *Payment {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
