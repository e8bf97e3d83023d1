package memory

import (
	"context"
	"sort"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type paymentRepository struct {
	store *Store
}

func NewPaymentRepository(store *Store) repository.PaymentRepository {
	return &paymentRepository{store: store}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payments[payment.ID]; ok {
		return &repository.DuplicateKeyError{Field: repository.FieldPaymentID}
	}
	payment.Version = 1
	s.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if p, ok := r.store.payments[id]; ok {
		return copyPayment(p), nil
	}
	return nil, nil
}

func (r *paymentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Payment, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var owned []*entity.Payment
	for _, p := range r.store.payments {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	sortPayments(owned, false)

	total := int64(len(owned))
	if offset >= len(owned) {
		return []*entity.Payment{}, total, nil
	}
	owned = owned[offset:]
	if len(owned) > limit {
		owned = owned[:limit]
	}

	out := make([]*entity.Payment, 0, len(owned))
	for _, p := range owned {
		out = append(out, copyPayment(p))
	}
	return out, total, nil
}

func (r *paymentRepository) CompareAndSwap(ctx context.Context, payment *entity.Payment, expectedVersion int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.payments[payment.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrStaleWrite
	}

	updated := copyPayment(payment)
	// immutable fields keep their stored values
	updated.OwnerID = stored.OwnerID
	updated.Network = stored.Network
	updated.Amount = stored.Amount
	updated.ExpiresAt = stored.ExpiresAt
	updated.CreatedAt = stored.CreatedAt
	updated.Version = expectedVersion + 1

	s.payments[payment.ID] = updated
	payment.Version = updated.Version
	return nil
}

func (r *paymentRepository) ListAwaitingAddress(ctx context.Context, network string, limit int) ([]*entity.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var waiting []*entity.Payment
	for _, p := range r.store.payments {
		if p.Network == network && p.Status == entity.PaymentStatusPending && p.Address == nil {
			waiting = append(waiting, p)
		}
	}
	sortPayments(waiting, true)
	if len(waiting) > limit {
		waiting = waiting[:limit]
	}

	out := make([]*entity.Payment, 0, len(waiting))
	for _, p := range waiting {
		out = append(out, copyPayment(p))
	}
	return out, nil
}

func sortPayments(ps []*entity.Payment, ascending bool) {
	sort.Slice(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if !ascending {
			a, b = b, a
		}
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
