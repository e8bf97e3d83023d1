package repository

import "errors"

// Sentinel errors every repository implementation translates its driver errors into.
var (
	// ErrDuplicateKey is returned when a write violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrStaleWrite is returned when a conditional update found a newer version.
	ErrStaleWrite = errors.New("stale write")
	// ErrAlreadyAssigned is returned when a write-once field is already set.
	ErrAlreadyAssigned = errors.New("already assigned")
	// ErrNotFound is returned by writes addressing a missing record.
	ErrNotFound = errors.New("record not found")
)

// DuplicateKeyError names the unique constraint that was violated.
type DuplicateKeyError struct {
	// Field is the logical field of the constraint, one of the Field* constants.
	Field string
	Cause error
}

// Logical unique fields.
const (
	FieldIdentity         = "identity"
	FieldAPIToken         = "api_token"
	FieldCustodyReference = "custody_reference"
	FieldPaymentID        = "payment_id"
	FieldUnknown          = ""
)

func (e *DuplicateKeyError) Error() string {
	if e.Field == FieldUnknown {
		return "duplicate key"
	}
	return "duplicate key on " + e.Field
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Cause
}

// DuplicateField returns the field of a duplicate key error, or FieldUnknown.
func DuplicateField(err error) string {
	var dup *DuplicateKeyError
	if errors.As(err, &dup) {
		return dup.Field
	}
	return FieldUnknown
}
