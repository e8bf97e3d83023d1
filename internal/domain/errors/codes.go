// Package errors defines the error codes of the gateway and registers their
// transport mapping with the shared errors package.
package errors

import (
	"net/http"

	apperrors "github.com/wekeepgrowing/custody-gateway/pkg/errors"
)

// Error codes returned to clients in the "code" field.
const (
	CodeValidation                = apperrors.ErrInvalidArgument
	CodeInternal                  = apperrors.ErrInternal
	CodeNotFound                  = apperrors.ErrNotFound
	CodeInvalidCredential         = "INVALID_CREDENTIAL"
	CodeInvalidAPIKey             = "INVALID_API_KEY"
	CodeInvalidInternalSecret     = "INVALID_INTERNAL_SECRET"
	CodeNotGenerated              = "NOT_GENERATED"
	CodeDuplicateAccount          = "DUPLICATE_ACCOUNT"
	CodeDuplicatePayment          = "DUPLICATE_PAYMENT"
	CodeDuplicateCustodyReference = "DUPLICATE_CUSTODY_REFERENCE"
	CodeAlreadyAssigned           = "ALREADY_ASSIGNED"
	CodeNoCustodyAssigned         = "NO_CUSTODY_ASSIGNED"
	CodeInvalidTransition         = "INVALID_TRANSITION"
	CodeAddressConflict           = "ADDRESS_CONFLICT"
	CodeIncompleteCompletion      = "INCOMPLETE_COMPLETION"
)

func init() {
	for code, pair := range map[string]apperrors.CodePair{
		CodeInvalidCredential:         {HTTPStatus: http.StatusUnauthorized, GRPCCode: 16},
		CodeInvalidAPIKey:             {HTTPStatus: http.StatusUnauthorized, GRPCCode: 16},
		CodeInvalidInternalSecret:     {HTTPStatus: http.StatusForbidden, GRPCCode: 7},
		CodeNotGenerated:              {HTTPStatus: http.StatusNotFound, GRPCCode: 5},
		CodeDuplicateAccount:          {HTTPStatus: http.StatusConflict, GRPCCode: 6},
		CodeDuplicatePayment:          {HTTPStatus: http.StatusConflict, GRPCCode: 6},
		CodeDuplicateCustodyReference: {HTTPStatus: http.StatusConflict, GRPCCode: 6},
		CodeAlreadyAssigned:           {HTTPStatus: http.StatusConflict, GRPCCode: 9},
		CodeNoCustodyAssigned:         {HTTPStatus: http.StatusConflict, GRPCCode: 9},
		CodeInvalidTransition:         {HTTPStatus: http.StatusConflict, GRPCCode: 9},
		CodeAddressConflict:           {HTTPStatus: http.StatusConflict, GRPCCode: 9},
		CodeIncompleteCompletion:      {HTTPStatus: http.StatusBadRequest, GRPCCode: 3},
	} {
		apperrors.RegisterCode(code, pair)
	}
}
