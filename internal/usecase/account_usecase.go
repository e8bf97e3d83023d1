package usecase

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

type AccountUsecase struct {
	accountRepo repository.AccountRepository
	opts        Options
	logger      *zap.Logger
}

func NewAccountUsecase(accountRepo repository.AccountRepository, opts Options, logger *zap.Logger) *AccountUsecase {
	return &AccountUsecase{
		accountRepo: accountRepo,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// Authenticate resolves an API token to its account.
func (u *AccountUsecase) Authenticate(ctx context.Context, token string) (*entity.Account, error) {
	if token == "" {
		return nil, domainErrors.NewInvalidAPIKeyError("missing api key")
	}

	account, err := u.accountRepo.GetByAPIToken(ctx, token)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to look up api token")
		return nil, domainErrors.NewInternalError("failed to authenticate", err)
	}
	if account == nil {
		return nil, domainErrors.NewInvalidAPIKeyError("invalid api key")
	}
	return account, nil
}

// ConfigureWebhook stores the completion webhook of account. Only https URLs are accepted.
func (u *AccountUsecase) ConfigureWebhook(ctx context.Context, account *entity.Account, rawURL string) (*entity.Account, error) {
	if err := ValidateWebhookURL(rawURL); err != nil {
		return nil, err
	}

	if err := u.accountRepo.UpdateWebhookURL(ctx, account.ID, rawURL); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domainErrors.NewAccountNotFoundError()
		}
		apperrors.LogError(u.logger, err, "Failed to update webhook url", zap.String("account_id", account.ID))
		return nil, domainErrors.NewInternalError("failed to update webhook", err)
	}

	updated := *account
	updated.WebhookURL = &rawURL
	u.logger.Info("Webhook configured", zap.String("account_id", account.ID))
	return &updated, nil
}

// ValidateWebhookURL accepts absolute https URLs with a host.
func ValidateWebhookURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || !strings.EqualFold(parsed.Scheme, "https") || parsed.Host == "" {
		return domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "url", Message: "must be a valid https url"})
	}
	return nil
}

// UpdateBalance overwrites the balance of the account identified by identity.
func (u *AccountUsecase) UpdateBalance(ctx context.Context, identity string, balance decimal.Decimal) (*entity.Account, error) {
	if balance.IsNegative() {
		return nil, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "balance", Message: "must not be negative"})
	}

	account, err := u.lookup(ctx, identity)
	if err != nil {
		return nil, err
	}

	if err := u.accountRepo.UpdateBalance(ctx, account.ID, balance); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domainErrors.NewAccountNotFoundError()
		}
		apperrors.LogError(u.logger, err, "Failed to update balance", zap.String("account_id", account.ID))
		return nil, domainErrors.NewInternalError("failed to update balance", err)
	}

	account.Balance = balance
	u.logger.Info("Balance updated",
		zap.String("account_id", account.ID),
		zap.String("balance", balance.String()))
	return account, nil
}

// AssignCustody records the custody reference the mediator generated for an account.
func (u *AccountUsecase) AssignCustody(ctx context.Context, identity, reference string) (*entity.Account, error) {
	if strings.TrimSpace(reference) == "" {
		return nil, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "custodyReference", Message: "is required"})
	}

	account, err := u.lookup(ctx, identity)
	if err != nil {
		return nil, err
	}
	if account.HasCustody() {
		return nil, domainErrors.NewAlreadyAssignedError()
	}

	err = u.accountRepo.AssignCustodyReference(ctx, account.ID, reference)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAlreadyAssigned):
		return nil, domainErrors.NewAlreadyAssignedError()
	case errors.Is(err, repository.ErrDuplicateKey):
		return nil, domainErrors.NewDuplicateCustodyReferenceError()
	case errors.Is(err, repository.ErrNotFound):
		return nil, domainErrors.NewAccountNotFoundError()
	default:
		apperrors.LogError(u.logger, err, "Failed to assign custody reference", zap.String("account_id", account.ID))
		return nil, domainErrors.NewInternalError("failed to assign custody reference", err)
	}

	account.CustodyReference = &reference
	u.logger.Info("Custody reference assigned", zap.String("account_id", account.ID))
	return account, nil
}

// ListAwaitingCustody returns accounts the mediator has not assigned a custody reference yet.
func (u *AccountUsecase) ListAwaitingCustody(ctx context.Context, limit int) ([]*entity.Account, error) {
	accounts, err := u.accountRepo.ListWithoutCustody(ctx, u.opts.Network, entity.DiscoveryLimit(limit))
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to list accounts awaiting custody")
		return nil, domainErrors.NewInternalError("failed to list accounts", err)
	}
	return accounts, nil
}

func (u *AccountUsecase) lookup(ctx context.Context, identity string) (*entity.Account, error) {
	if strings.TrimSpace(identity) == "" {
		return nil, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "publicKey", Message: "is required"})
	}

	account, err := u.accountRepo.GetByIdentity(ctx, u.opts.Network, identity)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to look up account")
		return nil, domainErrors.NewInternalError("failed to look up account", err)
	}
	if account == nil {
		return nil, domainErrors.NewAccountNotFoundError()
	}
	return account, nil
}
