package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

type paymentDocument struct {
	ID              string     `bson:"_id"`
	OwnerID         string     `bson:"owner_id"`
	Network         string     `bson:"network"`
	Amount          int64      `bson:"amount"`
	Status          string     `bson:"status"`
	Address         *string    `bson:"address,omitempty"`
	SettlementProof *string    `bson:"settlement_proof,omitempty"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty"`
	ExpiresAt       time.Time  `bson:"expires_at"`
	Version         int64      `bson:"version"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func (d *paymentDocument) toEntity() *entity.Payment {
	return &entity.Payment{
		ID:              d.ID,
		OwnerID:         d.OwnerID,
		Network:         d.Network,
		Amount:          d.Amount,
		Status:          entity.PaymentStatus(d.Status),
		Address:         d.Address,
		SettlementProof: d.SettlementProof,
		CompletedAt:     d.CompletedAt,
		ExpiresAt:       d.ExpiresAt,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

func paymentToDocument(p *entity.Payment) *paymentDocument {
	return &paymentDocument{
		ID:              p.ID,
		OwnerID:         p.OwnerID,
		Network:         p.Network,
		Amount:          p.Amount,
		Status:          string(p.Status),
		Address:         p.Address,
		SettlementProof: p.SettlementProof,
		CompletedAt:     p.CompletedAt,
		ExpiresAt:       p.ExpiresAt,
		Version:         p.Version,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

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

func (r *paymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	coll, err := collection(ctx, r.conn, paymentsCollection)
	if err != nil {
		return err
	}

	payment.Version = 1
	if _, err := coll.InsertOne(ctx, paymentToDocument(payment)); err != nil {
		err = translateError(err, repository.FieldPaymentID)
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
	coll, err := collection(ctx, r.conn, paymentsCollection)
	if err != nil {
		return nil, err
	}

	var doc paymentDocument
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return doc.toEntity(), nil
}

func (r *paymentRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*entity.Payment, error) {
	coll, err := collection(ctx, r.conn, paymentsCollection)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payments: %w", err)
	}
	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode payments: %w", err)
	}

	payments := make([]*entity.Payment, 0, len(docs))
	for i := range docs {
		payments = append(payments, docs[i].toEntity())
	}
	return payments, nil
}

func (r *paymentRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*entity.Payment, int64, error) {
	coll, err := collection(ctx, r.conn, paymentsCollection)
	if err != nil {
		return nil, 0, err
	}

	filter := bson.M{"owner_id": ownerID}
	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	payments, err := r.find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

func (r *paymentRepository) CompareAndSwap(ctx context.Context, payment *entity.Payment, expectedVersion int64) error {
	coll, err := collection(ctx, r.conn, paymentsCollection)
	if err != nil {
		return err
	}

	set := bson.M{
		"status":     string(payment.Status),
		"version":    expectedVersion + 1,
		"updated_at": payment.UpdatedAt,
	}
	// write-once fields are never cleared
	if payment.Address != nil {
		set["address"] = *payment.Address
	}
	if payment.SettlementProof != nil {
		set["settlement_proof"] = *payment.SettlementProof
	}
	if payment.CompletedAt != nil {
		set["completed_at"] = *payment.CompletedAt
	}

	res, err := coll.UpdateOne(ctx,
		bson.M{"_id": payment.ID, "version": expectedVersion},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrStaleWrite
	}
	payment.Version = expectedVersion + 1
	return nil
}

func (r *paymentRepository) ListAwaitingAddress(ctx context.Context, network string, limit int) ([]*entity.Payment, error) {
	return r.find(ctx,
		bson.M{"network": network, "status": string(entity.PaymentStatusPending), "address": nil},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}}).
			SetLimit(int64(limit)),
	)
}
