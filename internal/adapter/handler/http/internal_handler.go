package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

// InternalHandler serves the mediator. Routes are guarded by the internal
// secret middleware.
type InternalHandler struct {
	accounts *usecase.AccountUsecase
	payments *usecase.PaymentUsecase
	logger   *zap.Logger
}

func NewInternalHandler(accounts *usecase.AccountUsecase, payments *usecase.PaymentUsecase, logger *zap.Logger) *InternalHandler {
	return &InternalHandler{
		accounts: accounts,
		payments: payments,
		logger:   logger,
	}
}

// UpdateBalance handles POST /api/internal/balance-update.
func (h *InternalHandler) UpdateBalance(c echo.Context) error {
	var req balanceUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Balance == nil {
		return domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "balance", Message: "is required"})
	}

	account, err := h.accounts.UpdateBalance(c.Request().Context(), req.PublicKey, *req.Balance)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balanceUpdateResponse{
		Success: true,
		Balance: account.Balance,
	})
}

// AssignCustody handles POST /api/internal/assign-custody.
func (h *InternalHandler) AssignCustody(c echo.Context) error {
	var req assignCustodyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.AssignCustody(c.Request().Context(), req.PublicKey, req.CustodyReference)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignCustodyResponse{
		Success: true,
		Account: custodyView{
			PublicKey:        account.Identity,
			CustodialAddress: account.CustodyReference,
		},
	})
}

// CreatePayment handles POST /api/internal/payment-create.
func (h *InternalHandler) CreatePayment(c echo.Context) error {
	var req paymentCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.CreateOnBehalf(c.Request().Context(), req.PaymentID, req.PublicKey, req.Amount, nonEmpty(req.Address))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, payment)
}

// UpdatePayment handles POST /api/internal/payment-update. The response does
// not wait for webhook delivery.
func (h *InternalHandler) UpdatePayment(c echo.Context) error {
	var req paymentUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.ApplyMediatorUpdate(c.Request().Context(), req.PaymentID, req.patch())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, paymentUpdateResponse{
		Success: true,
		Payment: payment,
	})
}

// AwaitingCustody handles GET /api/internal/accounts/awaiting-custody.
func (h *InternalHandler) AwaitingCustody(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	accounts, err := h.accounts.ListAwaitingCustody(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	resp := awaitingCustodyResponse{Accounts: make([]awaitingAccount, 0, len(accounts))}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, awaitingAccount{
			ID:        a.ID,
			PublicKey: a.Identity,
			Network:   a.Network,
			CreatedAt: a.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// AwaitingAddress handles GET /api/internal/payments/awaiting-address.
func (h *InternalHandler) AwaitingAddress(c echo.Context) error {
	limit, err := limitParam(c)
	if err != nil {
		return err
	}

	payments, err := h.payments.ListAwaitingAddress(c.Request().Context(), limit)
	if err != nil {
		return err
	}

	resp := awaitingAddressResponse{Payments: make([]awaitingPayment, 0, len(payments))}
	for _, p := range payments {
		resp.Payments = append(resp.Payments, awaitingPayment{
			PaymentID: p.ID,
			AccountID: p.OwnerID,
			Network:   p.Network,
			Amount:    p.Amount,
			CreatedAt: p.CreatedAt,
			ExpiresAt: p.ExpiresAt,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func limitParam(c echo.Context) (int, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainErrors.NewValidationError("invalid request",
			apperrors.FieldError{Field: "limit", Message: "must be an integer"})
	}
	return limit, nil
}
