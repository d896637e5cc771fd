package eatsml

import (
	"errors"
	"fmt"
)

// Causes wrapped by ExportError and ImportError.
var (
	// ErrSchema reports a document that fails grammar validation.
	ErrSchema = errors.New("schema violation")
	// ErrMissingObject reports a stored id or reference that resolves to
	// nothing.
	ErrMissingObject = errors.New("missing referenced object")
	// ErrPermission reports an acting user without the rights the document
	// demands.
	ErrPermission = errors.New("permission denied")
	// ErrAuthorityMismatch reports a typed reference owned by another
	// authority than the asserting authority record.
	ErrAuthorityMismatch = errors.New("mismatched authorities")
	// ErrMissingPrecondition reports a property asserted without an
	// existence under the same authority record.
	ErrMissingPrecondition = errors.New("missing existence precondition")
	// ErrProfileRequired reports an annotated or limited export requested
	// without a user profile.
	ErrProfileRequired = errors.New("user profile required")
)

// ExportError is the error returned by export operations.
type ExportError struct {
	Message string
	Err     error
}

func (e *ExportError) Error() string { return e.Message }

func (e *ExportError) Unwrap() error { return e.Err }

// ImportError is the error returned by Import.
type ImportError struct {
	Message string
	Err     error
}

func (e *ImportError) Error() string { return e.Message }

func (e *ImportError) Unwrap() error { return e.Err }

func exportErrorf(cause error, format string, args ...any) *ExportError {
	return &ExportError{Message: fmt.Sprintf(format, args...), Err: cause}
}

func importErrorf(cause error, format string, args ...any) *ImportError {
	return &ImportError{Message: fmt.Sprintf(format, args...), Err: cause}
}
