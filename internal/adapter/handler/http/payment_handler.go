package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
	"github.com/wekeepgrowing/custody-gateway/internal/middleware/auth"
	"github.com/wekeepgrowing/custody-gateway/internal/usecase"
)

type PaymentHandler struct {
	usecase *usecase.PaymentUsecase
	logger  *zap.Logger
}

func NewPaymentHandler(usecase *usecase.PaymentUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		usecase: usecase,
		logger:  logger,
	}
}

// CreatePayment handles POST /api/payments.
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	payment, err := h.usecase.CreatePayment(c.Request().Context(), account, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListPayments handles GET /api/payments?limit=&offset=.
func (h *PaymentHandler) ListPayments(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}

	var params entity.PaginationParams
	if err := c.Bind(&params); err != nil {
		return domainErrors.NewValidationError("invalid pagination parameters")
	}

	page, err := h.usecase.ListPayments(c.Request().Context(), account, params)
	if err != nil {
		return err
	}

	h.logger.Debug("Listed payments",
		zap.String("account_id", account.ID),
		zap.Int("count", len(page.Data)),
		zap.Int64("total", page.Pagination.Total))

	return c.JSON(http.StatusOK, page)
}

// GetPayment handles GET /api/payments/:id.
func (h *PaymentHandler) GetPayment(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}

	payment, err := h.usecase.GetPayment(c.Request().Context(), account, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, payment)
}

// GetPaymentAddress handles GET /api/payments/:id/address.
func (h *PaymentHandler) GetPaymentAddress(c echo.Context) error {
	account, err := auth.RequireAccount(c)
	if err != nil {
		return err
	}

	id := c.Param("id")
	address, err := h.usecase.GetPaymentAddress(c.Request().Context(), account, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, addressResponse{
		PaymentID: id,
		Address:   address,
	})
}
