package payment

import "time"

// CompletionUnrecordedEvent is emitted when the remote ledger confirmed an
// order but the local processing->completed write failed. The funds moved, so
// the originating operation still succeeds; a reconciler repairs the local
// record from this event.
type CompletionUnrecordedEvent struct {
	OrderID    string
	OccurredAt time.Time
}

func (CompletionUnrecordedEvent) EventName() string { return "payment.completion_unrecorded" }

func NewCompletionUnrecordedEvent(orderID string) CompletionUnrecordedEvent {
	return CompletionUnrecordedEvent{
		OrderID:    orderID,
		OccurredAt: time.Now().UTC(),
	}
}
