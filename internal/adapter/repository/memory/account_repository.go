package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type accountRepository struct {
	store *Store
}

func NewAccountRepository(store *Store) repository.AccountRepository {
	return &accountRepository{store: store}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	key := identityKey(account.Network, account.Identity)
	if _, ok := s.byIdentity[key]; ok {
		return &repository.DuplicateKeyError{Field: repository.FieldIdentity}
	}
	if _, ok := s.byToken[account.APIToken]; ok {
		return &repository.DuplicateKeyError{Field: repository.FieldAPIToken}
	}
	if account.CustodyReference != nil {
		if _, ok := s.byCustodyRef[*account.CustodyReference]; ok {
			return &repository.DuplicateKeyError{Field: repository.FieldCustodyReference}
		}
		s.byCustodyRef[*account.CustodyReference] = account.ID
	}

	s.accounts[account.ID] = copyAccount(account)
	s.byIdentity[key] = account.ID
	s.byToken[account.APIToken] = account.ID
	return nil
}

func (r *accountRepository) get(id string, ok bool) *entity.Account {
	if !ok {
		return nil
	}
	if a, found := r.store.accounts[id]; found {
		return copyAccount(a)
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.get(id, true), nil
}

func (r *accountRepository) GetByIdentity(ctx context.Context, network, identity string) (*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.byIdentity[identityKey(network, identity)]
	return r.get(id, ok), nil
}

func (r *accountRepository) GetByAPIToken(ctx context.Context, token string) (*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.byToken[token]
	return r.get(id, ok), nil
}

func (r *accountRepository) AssignCustodyReference(ctx context.Context, id, reference string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if a.CustodyReference != nil {
		return repository.ErrAlreadyAssigned
	}
	if _, taken := s.byCustodyRef[reference]; taken {
		return &repository.DuplicateKeyError{Field: repository.FieldCustodyReference}
	}

	ref := reference
	a.CustodyReference = &ref
	a.UpdatedAt = time.Now().UTC()
	s.byCustodyRef[reference] = id
	return nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Balance = balance
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *accountRepository) UpdateWebhookURL(ctx context.Context, id string, url string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	u := url
	a.WebhookURL = &u
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *accountRepository) ListWithoutCustody(ctx context.Context, network string, limit int) ([]*entity.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*entity.Account
	for _, a := range r.store.accounts {
		if a.Network == network && a.CustodyReference == nil {
			out = append(out, copyAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
