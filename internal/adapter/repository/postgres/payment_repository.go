package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/model"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type paymentRepository struct {
	conn   Conn
	logger *zap.Logger
}

func NewPaymentRepository(conn Conn, logger *zap.Logger) repository.PaymentRepository {
	return &paymentRepository{
		conn:   conn,
		logger: logger,
	}
}

func (r *paymentRepository) modelToEntity(m *model.Payment) *entity.Payment {
	if m == nil {
		return nil
	}
	return &entity.Payment{
		ID:              m.ID,
		OwnerID:         m.OwnerID,
		Network:         m.Network,
		Amount:          m.Amount,
		Status:          entity.PaymentStatus(m.Status),
		Address:         m.Address,
		SettlementProof: m.SettlementProof,
		CompletedAt:     m.CompletedAt,
		ExpiresAt:       m.ExpiresAt,
		Version:         m.Version,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (r *paymentRepository) entityToModel(e *entity.Payment) *model.Payment {
	return &model.Payment{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Network:         e.Network,
		Amount:          e.Amount,
		Status:          string(e.Status),
		Address:         e.Address,
		SettlementProof: e.SettlementProof,
		CompletedAt:     e.CompletedAt,
		ExpiresAt:       e.ExpiresAt,
		Version:         e.Version,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	payment.Version = 1
	if err := gdb.Create(r.entityToModel(payment)).Error; err != nil {
		err = translateError(err)
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		r.logger.Error("Failed to create payment",
			zap.String("payment_id", payment.ID),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*entity.Payment, error) {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return nil, err
	}

	var m model.Payment
	if err := gdb.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return r.modelToEntity(&m), nil
}

func (r *paymentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Payment, int64, error) {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := gdb.Model(&model.Payment{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []model.Payment
	err = gdb.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}
	return r.toEntities(rows), total, nil
}

func (r *paymentRepository) CompareAndSwap(ctx context.Context, payment *entity.Payment, expectedVersion int64) error {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return err
	}

	res := gdb.Model(&model.Payment{}).
		Where("id = ? AND version = ?", payment.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           string(payment.Status),
			"address":          payment.Address,
			"settlement_proof": payment.SettlementProof,
			"completed_at":     payment.CompletedAt,
			"version":          expectedVersion + 1,
			"updated_at":       payment.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update payment: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrStaleWrite
	}
	payment.Version = expectedVersion + 1
	return nil
}

func (r *paymentRepository) ListAwaitingAddress(ctx context.Context, network string, limit int) ([]*entity.Payment, error) {
	gdb, err := db(ctx, r.conn)
	if err != nil {
		return nil, err
	}

	var rows []model.Payment
	err = gdb.Where("network = ? AND status = ? AND address IS NULL", network, string(entity.PaymentStatusPending)).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments awaiting address: %w", err)
	}
	return r.toEntities(rows), nil
}

func (r *paymentRepository) toEntities(rows []model.Payment) []*entity.Payment {
	payments := make([]*entity.Payment, 0, len(rows))
	for i := range rows {
		payments = append(payments, r.modelToEntity(&rows[i]))
	}
	return payments
}
