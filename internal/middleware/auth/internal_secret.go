package auth

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
)

// InternalSecretHeader carries the shared secret of the mediator.
const InternalSecretHeader = "X-Internal-Secret"

// InternalSecretMiddleware admits requests whose X-Internal-Secret header
// equals secret. An empty secret rejects everything.
func InternalSecretMiddleware(secret string, logger *zap.Logger) echo.MiddlewareFunc {
	expected := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			provided := []byte(c.Request().Header.Get(InternalSecretHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(provided, expected) != 1 {
				logger.Warn("Rejected internal request",
					zap.String("path", c.Request().URL.Path),
					zap.String("ip", c.RealIP()))
				return domainErrors.NewInvalidInternalSecretError()
			}
			return next(c)
		}
	}
}
