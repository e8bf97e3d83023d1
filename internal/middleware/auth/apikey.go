package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/entity"
	domainErrors "github.com/wekeepgrowing/custody-gateway/internal/domain/errors"
)

// contextKey is used for storing the account in context
type contextKey string

const (
	accountContextKey contextKey = "authenticated_account"
	// AccountIDKey is the echo context key holding the account id.
	AccountIDKey = "account_id"
)

// Authenticator resolves API tokens to accounts.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*entity.Account, error)
}

// APIKeyConfig holds the configuration for the API key middleware
type APIKeyConfig struct {
	Authenticator Authenticator
	Logger        *zap.Logger
}

// APIKeyMiddleware requires "Authorization: Bearer <token>" and stores the
// matching account in the request context.
func APIKeyMiddleware(config APIKeyConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				config.Logger.Debug("Missing or malformed authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return domainErrors.NewInvalidAPIKeyError("authorization header must be: Bearer <api key>")
			}

			account, err := config.Authenticator.Authenticate(c.Request().Context(), token)
			if err != nil {
				config.Logger.Debug("API key rejected", zap.String("path", path), zap.Error(err))
				return err
			}

			ctx := context.WithValue(c.Request().Context(), accountContextKey, account)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(AccountIDKey, account.ID)

			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetAccountFromContext extracts the authenticated account from the request context
func GetAccountFromContext(c echo.Context) (*entity.Account, error) {
	account, ok := c.Request().Context().Value(accountContextKey).(*entity.Account)
	if !ok || account == nil {
		return nil, fmt.Errorf("no authenticated account found in context")
	}
	return account, nil
}

// RequireAccount returns the authenticated account or an INVALID_API_KEY error.
func RequireAccount(c echo.Context) (*entity.Account, error) {
	account, err := GetAccountFromContext(c)
	if err != nil {
		return nil, domainErrors.NewInvalidAPIKeyError("authentication required")
	}
	return account, nil
}
