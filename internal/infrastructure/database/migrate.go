package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(
		&model.Account{},
		&model.Payment{},
	); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates partial indexes that GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_custody_reference ON accounts (custody_reference) WHERE custody_reference IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_awaiting_custody ON accounts (network, created_at) WHERE custody_reference IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_payments_awaiting_address ON payments (network, created_at) WHERE status = 'pending' AND address IS NULL`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
