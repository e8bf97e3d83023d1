package errors

import "sync"

// CodePair maps an error code onto transport status codes.
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

var (
	mappingMu   sync.RWMutex
	codeMapping = map[string]CodePair{
		ErrInternal:         {500, 13}, // Internal Server Error, INTERNAL
		ErrNotFound:         {404, 5},  // Not Found, NOT_FOUND
		ErrInvalidArgument:  {400, 3},  // Bad Request, INVALID_ARGUMENT
		ErrUnauthenticated:  {401, 16}, // Unauthorized, UNAUTHENTICATED
		ErrUnauthorized:     {403, 7},  // Forbidden, PERMISSION_DENIED
		ErrConflict:         {409, 6},  // Conflict, ALREADY_EXISTS
		ErrTimeout:          {504, 4},  // Gateway Timeout, DEADLINE_EXCEEDED
		ErrNotImplemented:   {501, 12}, // Not Implemented, UNIMPLEMENTED
		ErrMethodNotAllowed: {405, 12}, // Method Not Allowed, UNIMPLEMENTED
	}
)

// RegisterCode adds or replaces the transport mapping of a service specific code.
func RegisterCode(code string, pair CodePair) {
	mappingMu.Lock()
	defer mappingMu.Unlock()
	codeMapping[code] = pair
}

// GetCodeMapping returns the HTTP and gRPC codes for an error code.
// Unknown codes map to Internal Server Error.
func GetCodeMapping(code string) (int, int) {
	mappingMu.RLock()
	defer mappingMu.RUnlock()
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13
}
