package payment

import "context"

// BalanceClient is the outbound port to the remote service that holds the
// funds. Reserve and Confirm may each fail transiently; the adapter behind
// this port owns the retry policy, so the orchestrator treats any returned
// error as final.
type BalanceClient interface {
	Reserve(ctx context.Context, orderID string, amount int64) error
	Confirm(ctx context.Context, orderID string) error
}

// IDGenerator issues identifiers for new payments.
type IDGenerator interface {
	NewID() string
}
