package errors

import (
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

// NewValidationError reports invalid input, optionally per field.
func NewValidationError(message string, details ...apperrors.FieldError) *apperrors.AppError {
	return apperrors.NewAppError(CodeValidation, message, nil).WithDetails(details...)
}

// NewInternalError hides cause from the client; it is only logged.
func NewInternalError(message string, cause error) *apperrors.AppError {
	return apperrors.NewAppError(CodeInternal, message, cause)
}

func NewInvalidCredentialError() *apperrors.AppError {
	return apperrors.NewAppError(CodeInvalidCredential, "invalid password for this public key", nil)
}

func NewInvalidAPIKeyError(message string) *apperrors.AppError {
	return apperrors.NewAppError(CodeInvalidAPIKey, message, nil)
}

func NewInvalidInternalSecretError() *apperrors.AppError {
	return apperrors.NewAppError(CodeInvalidInternalSecret, "invalid internal secret", nil)
}

func NewDuplicateAccountError() *apperrors.AppError {
	return apperrors.NewAppError(CodeDuplicateAccount, "account registration conflicted, retry with the same credentials", nil)
}

func NewAccountNotFoundError() *apperrors.AppError {
	return apperrors.NewAppError(CodeNotFound, "account not found", nil)
}

func NewAlreadyAssignedError() *apperrors.AppError {
	return apperrors.NewAppError(CodeAlreadyAssigned, "account already has a custodial address", nil)
}

func NewDuplicateCustodyReferenceError() *apperrors.AppError {
	return apperrors.NewAppError(CodeDuplicateCustodyReference, "custodial address is already assigned to another account", nil)
}
