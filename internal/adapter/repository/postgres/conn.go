// Package postgres implements the domain repositories on PostgreSQL with gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/wekeepgrowing/custody-gateway/internal/domain/repository"
)

// Conn hands out the shared gorm handle, opening it on first use.
type Conn interface {
	Get(ctx context.Context) (*gorm.DB, error)
}

const uniqueViolation = "23505"

// constraintFields maps unique index names onto logical fields.
var constraintFields = map[string]string{
	"idx_accounts_network_identity":  repository.FieldIdentity,
	"idx_accounts_api_token":         repository.FieldAPIToken,
	"idx_accounts_custody_reference": repository.FieldCustodyReference,
	"payments_pkey":                  repository.FieldPaymentID,
}

// translateError turns unique violations into *repository.DuplicateKeyError.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &repository.DuplicateKeyError{Field: constraintFields[pgErr.ConstraintName], Cause: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &repository.DuplicateKeyError{Field: repository.FieldUnknown, Cause: err}
	}
	return err
}

func db(ctx context.Context, conn Conn) (*gorm.DB, error) {
	gdb, err := conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("database unavailable: %w", err)
	}
	return gdb.WithContext(ctx), nil
}
