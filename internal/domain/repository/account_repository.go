package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// AccountRepository is the credential store. Lookups return (nil, nil) when
// no account matches.
type AccountRepository interface {
	// Create inserts a new account; a unique violation yields a *DuplicateKeyError.
	Create(ctx context.Context, account *entity.Account) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByIdentity(ctx context.Context, network, identity string) (*entity.Account, error)
	GetByAPIToken(ctx context.Context, token string) (*entity.Account, error)
	// AssignCustodyReference sets the reference only if it is still unset.
	// Returns ErrAlreadyAssigned, ErrNotFound or a *DuplicateKeyError.
	AssignCustodyReference(ctx context.Context, id, reference string) error
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error
	UpdateWebhookURL(ctx context.Context, id string, url string) error
	// ListWithoutCustody returns accounts awaiting a custody reference, oldest first.
	ListWithoutCustody(ctx context.Context, network string, limit int) ([]*entity.Account, error)
}
