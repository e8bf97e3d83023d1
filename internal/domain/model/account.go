package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a ledger account row
type Account struct {
	ID               string          `gorm:"primaryKey;type:uuid"`
	Network          string          `gorm:"size:16;not null;uniqueIndex:idx_accounts_network_identity,priority:1"`
	Identity         string          `gorm:"size:255;not null;uniqueIndex:idx_accounts_network_identity,priority:2"`
	SecretDigest     string          `gorm:"column:secret_digest;size:100;not null"`
	APIToken         string          `gorm:"column:api_token;size:128;not null;uniqueIndex:idx_accounts_api_token"`
	Balance          decimal.Decimal `gorm:"type:numeric(30,12);not null;default:0"`
	CustodyReference *string         `gorm:"column:custody_reference;size:255"`
	WebhookURL       *string         `gorm:"column:webhook_url;size:2048"`
	CreatedAt        time.Time       `gorm:"not null;index:idx_accounts_created_at"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Account) TableName() string {
	return "accounts"
}
