package payment

import "context"

// Repository is the durable store contract for payments. Implementations must
// enforce the order-id uniqueness at the storage engine itself (unique index,
// or a keyed map guarded by one lock), never by check-then-insert.
type Repository interface {
	// Create atomically inserts a new record and returns its id. A second
	// payment for the same order fails with ErrDuplicateOrder.
	Create(ctx context.Context, p *Payment) (string, error)

	// UpdateStatus conditionally advances the record for orderID to target in
	// a single atomic write. It returns (false, nil), without error, when no
	// record matches, when the current status is completed, or when the
	// current status already equals target; true means a write occurred and
	// UpdatedAt was refreshed. The same-status guard is what gives concurrent
	// pending->processing claims exactly one winner.
	UpdateStatus(ctx context.Context, orderID string, target Status) (bool, error)
}
