package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

const (
	// MinSecretLength is the minimum number of characters of an account secret.
	MinSecretLength = 8
	// maxTokenAttempts bounds retries after an API token collision.
	maxTokenAttempts = 3
)

// ProvisionResult is the outcome of Provision.
type ProvisionResult struct {
	Account *entity.Account
	// Created is true when this call created the account.
	Created bool
}

type ProvisioningUsecase struct {
	accountRepo repository.AccountRepository
	hasher      SecretHasher
	tokens      TokenGenerator
	opts        Options
	logger      *zap.Logger
}

func NewProvisioningUsecase(
	accountRepo repository.AccountRepository,
	hasher SecretHasher,
	tokens TokenGenerator,
	opts Options,
	logger *zap.Logger,
) *ProvisioningUsecase {
	return &ProvisioningUsecase{
		accountRepo: accountRepo,
		hasher:      hasher,
		tokens:      tokens,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// Provision authenticates an existing account or creates a new one.
// Two concurrent first-time calls with the same identity and secret both
// succeed with the same token; with different secrets exactly one wins.
func (u *ProvisioningUsecase) Provision(ctx context.Context, identity, secret string) (*ProvisionResult, error) {
	if err := validateCredentials(identity, secret); err != nil {
		return nil, err
	}

	result, err := u.authenticate(ctx, identity, secret)
	if err != nil || result != nil {
		return result, err
	}

	digest, err := u.hasher.Hash(secret)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to hash secret")
		return nil, domainErrors.NewInternalError("failed to create account", err)
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		account, err := u.newAccount(identity, digest)
		if err != nil {
			apperrors.LogError(u.logger, err, "Failed to generate api token")
			return nil, domainErrors.NewInternalError("failed to create account", err)
		}

		err = u.accountRepo.Create(ctx, account)
		if err == nil {
			u.logger.Info("Account created",
				zap.String("account_id", account.ID),
				zap.String("network", account.Network))
			u.opts.Publisher.Publish(ctx, entity.MediatorEvent{
				Event:      entity.EventAccountCreated,
				Network:    account.Network,
				Identity:   account.Identity,
				OccurredAt: account.CreatedAt,
			})
			return &ProvisionResult{Account: account, Created: true}, nil
		}

		if !errors.Is(err, repository.ErrDuplicateKey) {
			apperrors.LogError(u.logger, err, "Failed to create account")
			return nil, domainErrors.NewInternalError("failed to create account", err)
		}
		if repository.DuplicateField(err) == repository.FieldAPIToken {
			u.logger.Warn("API token collision, regenerating", zap.Int("attempt", attempt+1))
			continue
		}

		// lost the race for this identity: look it up exactly once
		u.logger.Info("Concurrent registration detected, re-authenticating",
			zap.String("identity", identity))
		result, err := u.authenticate(ctx, identity, secret)
		if err != nil || result != nil {
			return result, err
		}
		return nil, domainErrors.NewDuplicateAccountError()
	}

	return nil, domainErrors.NewInternalError("failed to allocate a unique api token", nil)
}

// authenticate returns nil, nil when no account exists for identity.
func (u *ProvisioningUsecase) authenticate(ctx context.Context, identity, secret string) (*ProvisionResult, error) {
	account, err := u.accountRepo.GetByIdentity(ctx, u.opts.Network, identity)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to look up account")
		return nil, domainErrors.NewInternalError("failed to look up account", err)
	}
	if account == nil {
		return nil, nil
	}
	if !u.hasher.Verify(secret, account.SecretDigest) {
		return nil, domainErrors.NewInvalidCredentialError()
	}
	return &ProvisionResult{Account: account, Created: false}, nil
}

func (u *ProvisioningUsecase) newAccount(identity, digest string) (*entity.Account, error) {
	token, err := u.tokens.Generate()
	if err != nil {
		return nil, err
	}
	now := u.opts.Now().UTC()
	return &entity.Account{
		ID:           u.opts.NewID(),
		Network:      u.opts.Network,
		Identity:     identity,
		SecretDigest: digest,
		APIToken:     token,
		Balance:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func validateCredentials(identity, secret string) error {
	var details []apperrors.FieldError
	if strings.TrimSpace(identity) == "" {
		details = append(details, apperrors.FieldError{Field: "publicKey", Message: "is required"})
	}
	if utf8.RuneCountInString(secret) < MinSecretLength {
		details = append(details, apperrors.FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if len(details) > 0 {
		return domainErrors.NewValidationError("invalid request", details...)
	}
	return nil
}
