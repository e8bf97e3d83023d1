package http

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
)

// Currency is the unit balances are reported in.
const Currency = "XMR"

type provisionRequest struct {
	PublicKey string `json:"publicKey" validate:"required"`
	Password  string `json:"password" validate:"required,min=8"`
}

type provisionResponse struct {
	APIKey           string  `json:"apiKey"`
	PublicKey        string  `json:"publicKey"`
	CustodialAddress *string `json:"custodialAddress"`
}

type accountResponse struct {
	PublicKey        string          `json:"publicKey"`
	Network          string          `json:"network"`
	CustodialAddress *string         `json:"custodialAddress"`
	Balance          decimal.Decimal `json:"balance"`
	WebhookURL       *string         `json:"webhookUrl,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func newAccountResponse(a *entity.Account) accountResponse {
	return accountResponse{
		PublicKey:        a.Identity,
		Network:          a.Network,
		CustodialAddress: a.CustodyReference,
		Balance:          a.Balance,
		WebhookURL:       a.WebhookURL,
		CreatedAt:        a.CreatedAt,
	}
}

type balanceResponse struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}

type webhookRequest struct {
	URL string `json:"url" validate:"required,https_url"`
}

type webhookResponse struct {
	Success    bool   `json:"success"`
	WebhookURL string `json:"webhookUrl"`
}

type createPaymentRequest struct {
	Amount int64 `json:"amount" validate:"gt=0"`
}

type addressResponse struct {
	PaymentID string `json:"paymentId"`
	Address   string `json:"address"`
}

type balanceUpdateRequest struct {
	PublicKey string           `json:"publicKey" validate:"required"`
	Balance   *decimal.Decimal `json:"balance"`
}

type balanceUpdateResponse struct {
	Success bool            `json:"success"`
	Balance decimal.Decimal `json:"balance"`
}

type assignCustodyRequest struct {
	PublicKey        string `json:"publicKey" validate:"required"`
	CustodyReference string `json:"custodyReference" validate:"required"`
}

type custodyView struct {
	PublicKey        string  `json:"publicKey"`
	CustodialAddress *string `json:"custodialAddress"`
}

type assignCustodyResponse struct {
	Success bool        `json:"success"`
	Account custodyView `json:"account"`
}

type paymentCreateRequest struct {
	PaymentID string  `json:"paymentId" validate:"required,uuid_rfc4122"`
	PublicKey string  `json:"publicKey" validate:"required"`
	Amount    int64   `json:"amount" validate:"gt=0"`
	Address   *string `json:"address"`
}

type paymentUpdateRequest struct {
	PaymentID       string     `json:"paymentId" validate:"required,uuid_rfc4122"`
	Status          *string    `json:"status" validate:"omitempty,oneof=pending completed expired failed"`
	Address         *string    `json:"address"`
	TransactionHash *string    `json:"transactionHash"`
	CompletedAt     *time.Time `json:"completedAt"`
}

func (r paymentUpdateRequest) patch() entity.PaymentPatch {
	patch := entity.PaymentPatch{
		Address:         nonEmpty(r.Address),
		SettlementProof: nonEmpty(r.TransactionHash),
		CompletedAt:     r.CompletedAt,
	}
	if r.Status != nil {
		status := entity.PaymentStatus(*r.Status)
		patch.Status = &status
	}
	return patch
}

type paymentUpdateResponse struct {
	Success bool            `json:"success"`
	Payment *entity.Payment `json:"payment"`
}

type awaitingAccount struct {
	ID        string    `json:"id"`
	PublicKey string    `json:"publicKey"`
	Network   string    `json:"network"`
	CreatedAt time.Time `json:"createdAt"`
}

type awaitingCustodyResponse struct {
	Accounts []awaitingAccount `json:"accounts"`
}

type awaitingPayment struct {
	PaymentID string    `json:"paymentId"`
	AccountID string    `json:"accountId"`
	Network   string    `json:"network"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type awaitingAddressResponse struct {
	Payments []awaitingPayment `json:"payments"`
}

// nonEmpty treats blank strings as absent.
func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
