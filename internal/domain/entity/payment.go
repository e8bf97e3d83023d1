package entity

import (
	"errors"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusExpired, PaymentStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusExpired || s == PaymentStatusFailed
}

// CanTransition reports whether a payment in from may move to to.
// Staying in the same status is always allowed. Apply absorbs pushes that
// try to leave a terminal status instead of consulting this.
func CanTransition(from, to PaymentStatus) bool {
	if from == to {
		return true
	}
	return from == PaymentStatusPending && to.Terminal()
}

// Payment is a request to receive Amount into a mediator generated address.
type Payment struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"-"`
	Network         string        `json:"network"`
	Amount          int64         `json:"amount"`
	Status          PaymentStatus `json:"status"`
	Address         *string       `json:"address"`
	SettlementProof *string       `json:"transactionHash"`
	CompletedAt     *time.Time    `json:"completedAt"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	Version         int64         `json:"-"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// PaymentPatch is a partial update pushed by the mediator. Nil fields are left untouched.
type PaymentPatch struct {
	Status          *PaymentStatus
	Address         *string
	SettlementProof *string
	CompletedAt     *time.Time
}

// Errors returned by Payment.Apply.
var (
	ErrInvalidTransition    = errors.New("invalid payment status transition")
	ErrAddressConflict      = errors.New("payment address already set to a different value")
	ErrIncompleteCompletion = errors.New("completed payment requires a settlement proof")
)

// PaymentChange describes the outcome of applying a patch.
type PaymentChange struct {
	// Changed is false when the patch restated what is already stored.
	Changed bool
	// Completed is true only when this patch moved the payment into completed.
	Completed bool
}

// Apply validates patch against the current state and mutates p in place.
// p is left untouched when an error is returned.
func (p *Payment) Apply(patch PaymentPatch, now time.Time) (PaymentChange, error) {
	next := *p
	var change PaymentChange

	if patch.Address != nil && *patch.Address != "" {
		switch {
		case p.Address == nil:
			if p.Status.Terminal() {
				return PaymentChange{}, ErrInvalidTransition
			}
			addr := *patch.Address
			next.Address = &addr
			change.Changed = true
		case *p.Address != *patch.Address:
			return PaymentChange{}, ErrAddressConflict
		}
	}

	target := p.Status
	if patch.Status != nil {
		target = *patch.Status
	}
	if !target.Valid() {
		return PaymentChange{}, ErrInvalidTransition
	}
	if p.Status.Terminal() {
		// late or duplicate pushes are absorbed unless they contradict stored proof
		if err := p.checkRestatement(patch); err != nil {
			return PaymentChange{}, err
		}
		return PaymentChange{}, nil
	}
	if !CanTransition(p.Status, target) {
		return PaymentChange{}, ErrInvalidTransition
	}

	switch {
	case target == PaymentStatusCompleted:
		proof := p.SettlementProof
		if patch.SettlementProof != nil && *patch.SettlementProof != "" {
			v := *patch.SettlementProof
			proof = &v
		}
		if proof == nil || *proof == "" {
			return PaymentChange{}, ErrIncompleteCompletion
		}
		completedAt := normalizeTime(now)
		if patch.CompletedAt != nil {
			completedAt = normalizeTime(*patch.CompletedAt)
		}
		next.Status = PaymentStatusCompleted
		next.SettlementProof = proof
		next.CompletedAt = &completedAt
		change.Changed = true
		change.Completed = true

	case target.Terminal():
		if patch.SettlementProof != nil || patch.CompletedAt != nil {
			return PaymentChange{}, ErrInvalidTransition
		}
		next.Status = target
		change.Changed = true

	default:
		// still pending: a proof may be staged, a completion time may not
		if patch.CompletedAt != nil {
			return PaymentChange{}, ErrInvalidTransition
		}
		if patch.SettlementProof != nil && *patch.SettlementProof != "" {
			if p.SettlementProof != nil && *p.SettlementProof != *patch.SettlementProof {
				return PaymentChange{}, ErrInvalidTransition
			}
			if p.SettlementProof == nil {
				v := *patch.SettlementProof
				next.SettlementProof = &v
				change.Changed = true
			}
		}
	}

	if change.Changed {
		next.UpdatedAt = now.UTC()
		*p = next
	}
	return change, nil
}

// checkRestatement accepts a patch on a terminal payment only if it repeats stored values.
func (p *Payment) checkRestatement(patch PaymentPatch) error {
	if patch.SettlementProof != nil && *patch.SettlementProof != "" {
		if p.SettlementProof == nil || *p.SettlementProof != *patch.SettlementProof {
			return ErrInvalidTransition
		}
	}
	if patch.CompletedAt != nil {
		if p.CompletedAt == nil || !normalizeTime(*p.CompletedAt).Equal(normalizeTime(*patch.CompletedAt)) {
			return ErrInvalidTransition
		}
	}
	return nil
}

// normalizeTime drops precision below what every store keeps.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Expired reports whether the payment is pending past its expiry time.
func (p *Payment) Expired(now time.Time) bool {
	return p.Status == PaymentStatusPending && now.After(p.ExpiresAt)
}
