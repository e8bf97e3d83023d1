package model

import (
	"time"
)

// Payment represents a payment record
type Payment struct {
	ID              string     `gorm:"primaryKey;type:uuid"`
	OwnerID         string     `gorm:"column:owner_id;type:uuid;not null;index:idx_payments_owner_created,priority:1"`
	Network         string     `gorm:"size:16;not null"`
	Amount          int64      `gorm:"not null"`
	Status          string     `gorm:"size:16;not null"`
	Address         *string    `gorm:"size:255"`
	SettlementProof *string    `gorm:"column:settlement_proof;size:255"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	ExpiresAt       time.Time  `gorm:"column:expires_at;not null"`
	Version         int64      `gorm:"not null;default:1"`
	CreatedAt       time.Time  `gorm:"not null;index:idx_payments_owner_created,priority:2"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
