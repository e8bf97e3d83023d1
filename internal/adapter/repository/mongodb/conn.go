// Package mongodb implements the domain repositories on MongoDB.
package mongodb

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

// Conn hands out the shared database handle, opening it on first use.
type Conn interface {
	Get(ctx context.Context) (*mongo.Database, error)
}

const (
	accountsCollection = "accounts"
	paymentsCollection = "payments"
)

// index names double as the duplicate key discriminator
var indexFields = map[string]string{
	"idx_accounts_network_identity":  repository.FieldIdentity,
	"idx_accounts_api_token":         repository.FieldAPIToken,
	"idx_accounts_custody_reference": repository.FieldCustodyReference,
	"_id_":                           repository.FieldUnknown,
}

// EnsureIndexes creates the unique and lookup indexes both collections rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	accountIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "network", Value: 1}, {Key: "identity", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_accounts_network_identity"),
		},
		{
			Keys:    bson.D{{Key: "api_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_accounts_api_token"),
		},
		{
			Keys: bson.D{{Key: "custody_reference", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("idx_accounts_custody_reference").
				SetPartialFilterExpression(bson.M{"custody_reference": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "network", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_accounts_network_created"),
		},
	}
	if _, err := db.Collection(accountsCollection).Indexes().CreateMany(ctx, accountIndexes); err != nil {
		return fmt.Errorf("failed to create account indexes: %w", err)
	}

	paymentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_payments_owner_created"),
		},
		{
			Keys:    bson.D{{Key: "network", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index().SetName("idx_payments_network_status_created"),
		},
	}
	if _, err := db.Collection(paymentsCollection).Indexes().CreateMany(ctx, paymentIndexes); err != nil {
		return fmt.Errorf("failed to create payment indexes: %w", err)
	}
	return nil
}

// translateError turns duplicate key write errors into *repository.DuplicateKeyError.
func translateError(err error, fallback string) error {
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for index, field := range indexFields {
		if strings.Contains(msg, "index: "+index+" ") {
			if field == repository.FieldUnknown {
				field = fallback
			}
			return &repository.DuplicateKeyError{Field: field, Cause: err}
		}
	}
	return &repository.DuplicateKeyError{Field: fallback, Cause: err}
}

func collection(ctx context.Context, conn Conn, name string) (*mongo.Collection, error) {
	db, err := conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return db.Collection(name), nil
}
