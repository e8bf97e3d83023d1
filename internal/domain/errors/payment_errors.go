package errors

import (
	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

func NewPaymentNotFoundError() *apperrors.AppError {
	return apperrors.NewAppError(CodeNotFound, "payment not found", nil)
}

func NewAddressNotGeneratedError() *apperrors.AppError {
	return apperrors.NewAppError(CodeNotGenerated, "address has not been generated yet", nil)
}

func NewNoCustodyAssignedError() *apperrors.AppError {
	return apperrors.NewAppError(CodeNoCustodyAssigned, "account has no custodial address yet", nil)
}

func NewDuplicatePaymentError() *apperrors.AppError {
	return apperrors.NewAppError(CodeDuplicatePayment, "payment id already exists", nil)
}

func NewInvalidTransitionError(cause error) *apperrors.AppError {
	return apperrors.NewAppError(CodeInvalidTransition, "payment update conflicts with its current state", cause)
}

func NewAddressConflictError(cause error) *apperrors.AppError {
	return apperrors.NewAppError(CodeAddressConflict, "payment address is already set to a different value", cause)
}

func NewIncompleteCompletionError(cause error) *apperrors.AppError {
	return apperrors.NewAppError(CodeIncompleteCompletion, "transactionHash is required to complete a payment", cause)
}
