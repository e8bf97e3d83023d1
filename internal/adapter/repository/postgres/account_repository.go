package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/model"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type accountRepository struct {
	conn   Conn
	logger *zap.Logger
}

func NewAccountRepository(conn Conn, logger *zap.Logger) repository.AccountRepository {
	return &accountRepository{
		conn:   conn,
		logger: logger,
	}
}

// modelToEntity converts a model.Account to entity.Account
func (r *accountRepository) modelToEntity(m *model.Account) *entity.Account {
	if m == nil {
		return nil
	}
	return &entity.Account{
		ID:               m.ID,
		Network:          m.Network,
		Identity:         m.Identity,
		SecretDigest:     m.SecretDigest,
		APIToken:         m.APIToken,
		Balance:          m.Balance,
		CustodyReference: m.CustodyReference,
		WebhookURL:       m.WebhookURL,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// entityToModel converts an entity.Account to model.Account
func (r *accountRepository) entityToModel(e *entity.Account) *model.Account {
	return &model.Account{
		ID:               e.ID,
		Network:          e.Network,
		Identity:         e.Identity,
		SecretDigest:     e.SecretDigest,
		APIToken:         e.APIToken,
		Balance:          e.Balance,
		CustodyReference: e.CustodyReference,
		WebhookURL:       e.WebhookURL,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func (r *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	if err := gdb.Create(r.entityToModel(account)).Error; err != nil {
		err = translateError(err)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		r.logger.Error("Failed to create account",
			zap.String("identity", account.Identity),
			zap.Error(err))
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) first(ctx context.Context, query string, args ...interface{}) (*entity.Account, error) {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return nil, err
	}

	var m model.Account
	if err := gdb.Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return r.modelToEntity(&m), nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *accountRepository) GetByIdentity(ctx context.Context, network, identity string) (*entity.Account, error) {
	return r.first(ctx, "network = ? AND identity = ?", network, identity)
}

func (r *accountRepository) GetByAPIToken(ctx context.Context, token string) (*entity.Account, error) {
	return r.first(ctx, "api_token = ?", token)
}

func (r *accountRepository) AssignCustodyReference(ctx context.Context, id, reference string) error {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	res := gdb.Model(&model.Account{}).
		Where("id = ? AND custody_reference IS NULL", id).
		Updates(map[string]interface{}{
			"custody_reference": reference,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		err := translateError(res.Error)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("failed to assign custody reference: %w", err)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return repository.ErrNotFound
	}
	return repository.ErrAlreadyAssigned
}

func (r *accountRepository) update(ctx context.Context, id string, values map[string]interface{}) error {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	values["updated_at"] = time.Now().UTC()
	res := gdb.Model(&model.Account{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	return r.update(ctx, id, map[string]interface{}{"balance": balance})
}

func (r *accountRepository) UpdateWebhookURL(ctx context.Context, id string, url string) error {
	return r.update(ctx, id, map[string]interface{}{"webhook_url": url})
}

func (r *accountRepository) ListWithoutCustody(ctx context.Context, network string, limit int) ([]*entity.Account, error) {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return nil, err
	}

	var rows []model.Account
	err = gdb.Where("network = ? AND custody_reference IS NULL", network).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts without custody: %w", err)
	}

	accounts := make([]*entity.Account, 0, len(rows))
	for i := range rows {
		accounts = append(accounts, r.modelToEntity(&rows[i]))
	}
	return accounts, nil
}
