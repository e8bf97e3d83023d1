package errors

// Common error codes shared by every service.
const (
	ErrInternal         = "INTERNAL_ERROR"
	ErrNotFound         = "NOT_FOUND"
	ErrInvalidArgument  = "VALIDATION_ERROR"
	ErrUnauthenticated  = "UNAUTHENTICATED"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrConflict         = "CONFLICT"
	ErrTimeout          = "TIMEOUT"
	ErrNotImplemented   = "NOT_IMPLEMENTED"
	ErrMethodNotAllowed = "METHOD_NOT_ALLOWED"
)
