package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger account keyed by (Network, Identity).
type Account struct {
	ID               string          `json:"id"`
	Network          string          `json:"network"`
	Identity         string          `json:"publicKey"`
	SecretDigest     string          `json:"-"`
	APIToken         string          `json:"-"`
	Balance          decimal.Decimal `json:"balance"`
	CustodyReference *string         `json:"custodialAddress"`
	WebhookURL       *string         `json:"webhookUrl"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// HasCustody reports whether the mediator has assigned a custody reference.
func (a *Account) HasCustody() bool {
	return a.CustodyReference != nil && *a.CustodyReference != ""
}
