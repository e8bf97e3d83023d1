package entity

import "time"

// Event names.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentCreated   = "payment.created"
	EventAccountCreated   = "account.created"
)

// CompletionEvent is the webhook body sent when a payment completes.
type CompletionEvent struct {
	Event           string    `json:"event"`
	ID              string    `json:"id"`
	Amount          int64     `json:"amount"`
	SettlementProof string    `json:"transactionHash"`
	CompletedAt     time.Time `json:"completedAt"`
}

// NewCompletionEvent builds the event of a completed payment.
func NewCompletionEvent(p *Payment) CompletionEvent {
	ev := CompletionEvent{
		Event:  EventPaymentCompleted,
		ID:     p.ID,
		Amount: p.Amount,
	}
	if p.SettlementProof != nil {
		ev.SettlementProof = *p.SettlementProof
	}
	if p.CompletedAt != nil {
		ev.CompletedAt = p.CompletedAt.UTC()
	}
	return ev
}

// MediatorEvent is published for the mediator when work is waiting for it.
type MediatorEvent struct {
	Event      string    `json:"event"`
	Network    string    `json:"network"`
	Identity   string    `json:"publicKey"`
	PaymentID  string    `json:"paymentId,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
