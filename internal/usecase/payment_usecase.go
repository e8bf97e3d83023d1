package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

const (
	// DefaultPaymentTTL is how long a payment stays payable.
	DefaultPaymentTTL = 24 * time.Hour
	// maxUpdateAttempts bounds compare-and-swap retries of a mediator update.
	maxUpdateAttempts = 3
)

type PaymentUsecase struct {
	paymentRepo repository.PaymentRepository
	accountRepo repository.AccountRepository
	notifier    Notifier
	ttl         time.Duration
	opts        Options
	logger      *zap.Logger
}

func NewPaymentUsecase(
	paymentRepo repository.PaymentRepository,
	accountRepo repository.AccountRepository,
	notifier Notifier,
	ttl time.Duration,
	opts Options,
	logger *zap.Logger,
) *PaymentUsecase {
	if ttl <= 0 {
		ttl = DefaultPaymentTTL
	}
	return &PaymentUsecase{
		paymentRepo: paymentRepo,
		accountRepo: accountRepo,
		notifier:    notifier,
		ttl:         ttl,
		opts:        opts.withDefaults(),
		logger:      logger,
	}
}

// CreatePayment opens a pending payment for owner. The owner must already
// have a custody reference.
func (u *PaymentUsecase) CreatePayment(ctx context.Context, owner *entity.Account, amount int64) (*entity.Payment, error) {
	return u.create(ctx, owner, u.opts.NewID(), amount, nil)
}

// CreateOnBehalf opens a payment with a mediator supplied id for the account
// identified by identity.
func (u *PaymentUsecase) CreateOnBehalf(ctx context.Context, paymentID, identity string, amount int64, address *string) (*entity.Payment, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return nil, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "paymentId", Message: "must be a valid uuid"})
	}

	owner, err := u.accountRepo.GetByIdentity(ctx, u.opts.Network, identity)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to look up account")
		return nil, domainErrors.NewInternalError("failed to look up account", err)
	}
	if owner == nil {
		return nil, domainErrors.NewAccountNotFoundError()
	}

	if address != nil && strings.TrimSpace(*address) == "" {
		address = nil
	}
	return u.create(ctx, owner, strings.ToLower(paymentID), amount, address)
}

func (u *PaymentUsecase) create(ctx context.Context, owner *entity.Account, id string, amount int64, address *string) (*entity.Payment, error) {
	if amount <= 0 {
		return nil, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "amount", Message: "must be greater than 0"})
	}
	if !owner.HasCustody() {
		return nil, domainErrors.NewNoCustodyAssignedError()
	}

	now := u.opts.Now().UTC()
	payment := &entity.Payment{
		ID:        id,
		OwnerID:   owner.ID,
		Network:   owner.Network,
		Amount:    amount,
		Status:    entity.PaymentStatusPending,
		Address:   address,
		ExpiresAt: now.Add(u.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := u.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, domainErrors.NewDuplicatePaymentError()
		}
		apperrors.LogError(u.logger, err, "Failed to create payment", zap.String("account_id", owner.ID))
		return nil, domainErrors.NewInternalError("failed to create payment", err)
	}

	u.logger.Info("Payment created",
		zap.String("payment_id", payment.ID),
		zap.String("account_id", owner.ID),
		zap.Int64("amount", amount))

	if payment.Address == nil {
		u.opts.Publisher.Publish(ctx, entity.MediatorEvent{
			Event:      entity.EventPaymentCreated,
			Network:    payment.Network,
			Identity:   owner.Identity,
			PaymentID:  payment.ID,
			Amount:     payment.Amount,
			OccurredAt: now,
		})
	}
	return payment, nil
}

// GetPayment returns a payment of owner. Payments of other accounts are
// reported as not found.
func (u *PaymentUsecase) GetPayment(ctx context.Context, owner *entity.Account, id string) (*entity.Payment, error) {
	payment, err := u.paymentRepo.GetByID(ctx, strings.ToLower(id))
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to get payment", zap.String("payment_id", id))
		return nil, domainErrors.NewInternalError("failed to get payment", err)
	}
	if payment == nil || payment.OwnerID != owner.ID {
		return nil, domainErrors.NewPaymentNotFoundError()
	}
	return payment, nil
}

// GetPaymentAddress returns the receiving address of a payment of owner.
func (u *PaymentUsecase) GetPaymentAddress(ctx context.Context, owner *entity.Account, id string) (string, error) {
	payment, err := u.GetPayment(ctx, owner, id)
	if err != nil {
		return "", err
	}
	if payment.Address == nil {
		return "", domainErrors.NewAddressNotGeneratedError()
	}
	return *payment.Address, nil
}

// ListPayments returns the payments of owner, newest first.
func (u *PaymentUsecase) ListPayments(ctx context.Context, owner *entity.Account, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	params.Validate()

	payments, total, err := u.paymentRepo.ListByOwner(ctx, owner.ID, params.Limit, params.Offset)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to list payments", zap.String("account_id", owner.ID))
		return nil, domainErrors.NewInternalError("failed to list payments", err)
	}

	return &entity.PaginatedPaymentsResponse{
		Data: payments,
		Pagination: entity.PaginationMeta{
			Limit:  params.Limit,
			Offset: params.Offset,
			Total:  total,
		},
	}, nil
}

// ApplyMediatorUpdate applies a mediator push to a payment. Restating the
// stored state is a no-op; the completion webhook fires only when this call
// moved the payment into completed.
func (u *PaymentUsecase) ApplyMediatorUpdate(ctx context.Context, id string, patch entity.PaymentPatch) (*entity.Payment, error) {
	id = strings.ToLower(id)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		payment, err := u.paymentRepo.GetByID(ctx, id)
		if err != nil {
			apperrors.LogError(u.logger, err, "Failed to get payment", zap.String("payment_id", id))
			return nil, domainErrors.NewInternalError("failed to get payment", err)
		}
		if payment == nil {
			return nil, domainErrors.NewPaymentNotFoundError()
		}

		expected := payment.Version
		change, err := payment.Apply(patch, u.opts.Now())
		if err != nil {
			u.logger.Warn("Rejected payment update",
				zap.String("payment_id", id),
				zap.String("status", string(payment.Status)),
				zap.Error(err))
			return nil, mapTransitionError(err)
		}
		if !change.Changed {
			return payment, nil
		}

		err = u.paymentRepo.CompareAndSwap(ctx, payment, expected)
		if errors.Is(err, repository.ErrStaleWrite) {
			u.logger.Debug("Concurrent payment update, retrying",
				zap.String("payment_id", id),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			apperrors.LogError(u.logger, err, "Failed to update payment", zap.String("payment_id", id))
			return nil, domainErrors.NewInternalError("failed to update payment", err)
		}

		u.logger.Info("Payment updated",
			zap.String("payment_id", id),
			zap.String("status", string(payment.Status)))

		if change.Completed {
			u.notifyCompletion(ctx, payment)
		}
		return payment, nil
	}

	err := errors.New("payment kept changing concurrently")
	apperrors.LogError(u.logger, err, "Gave up updating payment", zap.String("payment_id", id))
	return nil, domainErrors.NewInternalError("failed to update payment", err)
}

// ListAwaitingAddress returns pending payments the mediator has not attached an address to.
func (u *PaymentUsecase) ListAwaitingAddress(ctx context.Context, limit int) ([]*entity.Payment, error) {
	payments, err := u.paymentRepo.ListAwaitingAddress(ctx, u.opts.Network, entity.DiscoveryLimit(limit))
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to list payments awaiting address")
		return nil, domainErrors.NewInternalError("failed to list payments", err)
	}
	return payments, nil
}

func (u *PaymentUsecase) notifyCompletion(ctx context.Context, payment *entity.Payment) {
	owner, err := u.accountRepo.GetByID(ctx, payment.OwnerID)
	if err != nil {
		apperrors.LogError(u.logger, err, "Failed to load payment owner for webhook", zap.String("payment_id", payment.ID))
		return
	}
	if owner == nil || owner.WebhookURL == nil || *owner.WebhookURL == "" {
		return
	}
	u.notifier.Notify(*owner.WebhookURL, entity.NewCompletionEvent(payment))
}

func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, entity.ErrAddressConflict):
		return domainErrors.NewAddressConflictError(err)
	case errors.Is(err, entity.ErrIncompleteCompletion):
		return domainErrors.NewIncompleteCompletionError(err)
	default:
		return domainErrors.NewInvalidTransitionError(err)
	}
}
