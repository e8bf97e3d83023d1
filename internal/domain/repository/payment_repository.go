package repository

import (
	"context"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// PaymentRepository is the payment ledger. Lookups return (nil, nil) when no
// payment matches.
type PaymentRepository interface {
	// Create inserts a payment with Version 1; a duplicate id yields a *DuplicateKeyError.
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Payment, int64, error)
	// CompareAndSwap stores payment if the stored version still equals
	// expectedVersion, incrementing payment.Version. Returns ErrStaleWrite otherwise.
	CompareAndSwap(ctx context.Context, payment *entity.Payment, expectedVersion int64) error
	// ListAwaitingAddress returns pending payments without an address, oldest first.
	ListAwaitingAddress(ctx context.Context, network string, limit int) ([]*entity.Payment, error)
}
