package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
)

// AccountHandler serves account registration and account level settings.
type AccountHandler struct {
	provisioning *usecase.ProvisioningUsecase
	accounts     *usecase.AccountUsecase
	logger       *zap.Logger
}

func NewAccountHandler(provisioning *usecase.ProvisioningUsecase, accounts *usecase.AccountUsecase, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		provisioning: provisioning,
		accounts:     accounts,
		logger:       logger,
	}
}

// Provision handles POST /api/account. It answers 201 when the account was
// created and 200 when existing credentials were verified.
func (h *AccountHandler) Provision(c echo.Context) error {
	var req provisionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.provisioning.Provision(c.Request().Context(), req.PublicKey, req.Password)
	if err != nil {
		return err
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.JSON(status, provisionResponse{
		APIKey:           result.Account.APIToken,
		PublicKey:        result.Account.Identity,
		CustodialAddress: result.Account.CustodyReference,
	})
}

// GetAccount handles GET /api/account.
func (h *AccountHandler) GetAccount(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAccountResponse(account))
}

// GetBalance handles GET /api/balance.
func (h *AccountHandler) GetBalance(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, balanceResponse{
		Balance:  account.Balance,
		Currency: Currency,
	})
}

// ConfigureWebhook handles POST /api/webhooks.
func (h *AccountHandler) ConfigureWebhook(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}

	var req webhookRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accounts.ConfigureWebhook(c.Request().Context(), account, req.URL)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, webhookResponse{
		Success:    true,
		WebhookURL: *updated.WebhookURL,
	})
}
