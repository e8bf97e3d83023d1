package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/custody-gateway/internal/adapter/repository/memory"
	"github.com/wekeepgrowing/custody-gateway/internal/adapter/repository/mongodb"
	"github.com/wekeepgrowing/custody-gateway/internal/adapter/repository/postgres"
	"github.com/wekeepgrowing/custody-gateway/internal/config"
	domainRepo "github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

// Repositories holds all repository instances
type Repositories struct {
	Account domainRepo.AccountRepository
	Payment domainRepo.PaymentRepository

	ping  func(ctx context.Context) error
	close func(ctx context.Context) error
}

// NewRepositories builds the repositories of the configured store driver.
// The underlying connection is opened lazily on first use.
func NewRepositories(cfg *config.Config, logger *zap.Logger) (*Repositories, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		conn := NewLazy(func(ctx context.Context) (*gorm.DB, error) {
			db, err := NewConnection(ctx, &cfg.Database, cfg.Log.Level, logger)
			if err != nil {
				return nil, err
			}
			if err := Migrate(db, logger); err != nil {
				_ = Close(db, logger)
				return nil, err
			}
			return db, nil
		})
		return &Repositories{
			Account: postgres.NewAccountRepository(conn, logger),
			Payment: postgres.NewPaymentRepository(conn, logger),
			ping: func(ctx context.Context) error {
				db, err := conn.Get(ctx)
				if err != nil {
					return err
				}
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
			close: func(ctx context.Context) error {
				if db, ok := conn.Peek(); ok {
					return Close(db, logger)
				}
				return nil
			},
		}, nil

	case config.DriverMongo:
		conn := NewLazy(func(ctx context.Context) (*mongo.Database, error) {
			return NewMongoDatabase(ctx, &cfg.Mongo, logger)
		})
		return &Repositories{
			Account: mongodb.NewAccountRepository(conn, logger),
			Payment: mongodb.NewPaymentRepository(conn, logger),
			ping: func(ctx context.Context) error {
				db, err := conn.Get(ctx)
				if err != nil {
					return err
				}
				return db.Client().Ping(ctx, nil)
			},
			close: func(ctx context.Context) error {
				if db, ok := conn.Peek(); ok {
					return CloseMongo(ctx, db, logger)
				}
				return nil
			},
		}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return NewMemoryRepositories(), nil
	}

	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}

// NewMemoryRepositories returns repositories backed by a fresh in-memory store.
func NewMemoryRepositories() *Repositories {
	store := memory.NewStore()
	return &Repositories{
		Account: memory.NewAccountRepository(store),
		Payment: memory.NewPaymentRepository(store),
		ping:    func(context.Context) error { return nil },
		close:   func(context.Context) error { return nil },
	}
}

// Ping opens the store if needed and checks that it answers.
func (r *Repositories) Ping(ctx context.Context) error {
	if r.ping == nil {
		return errors.New("store not configured")
	}
	return r.ping(ctx)
}

// Close releases the store connection if it was opened.
func (r *Repositories) Close(ctx context.Context) error {
	if r.close == nil {
		return nil
	}
	return r.close(ctx)
}
