package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/adapter/repository/mongodb"
	"github.com/wekeepgrowing/custody-gateway/internal/config"
)

// NewMongoDatabase connects to MongoDB and ensures the collection indexes.
func NewMongoDatabase(ctx context.Context, cfg *config.MongoConfig, log *zap.Logger) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(cfg.Database)
	if err := mongodb.EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("Mongo connection established", zap.String("database", cfg.Database))
	return db, nil
}

// CloseMongo disconnects the client behind db.
func CloseMongo(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	if err := db.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	log.Info("Mongo connection closed")
	return nil
}
