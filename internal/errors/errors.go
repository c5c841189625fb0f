package errors

import "fmt"

// ErrorCode represents a jot error code.
type ErrorCode string

const (
	ErrValidation     ErrorCode = "VALIDATION"      // 422: user-facing save rejection
	ErrImportInvalid  ErrorCode = "IMPORT_INVALID"  // 422: import root is not a sequence / unparsable
	ErrPersistence    ErrorCode = "PERSISTENCE"     // 500: storage adapter could not write
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// JotError represents a structured error with code, status, and details.
type JotError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *JotError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes a wrapped cause, if any.
func (e *JotError) Unwrap() error {
	if cause, ok := e.Details["cause"].(error); ok {
		return cause
	}
	return nil
}

// NewValidation creates a 422 error for explicit user-facing rejections,
// such as saving a note with both title and body empty.
func NewValidation(msg string) *JotError {
	return &JotError{
		Code:    ErrValidation,
		Status:  422,
		Message: msg,
	}
}

// NewImportInvalid creates a 422 error for import data whose root shape
// is not a sequence of note records. The import is aborted entirely.
func NewImportInvalid(msg string) *JotError {
	return &JotError{
		Code:    ErrImportInvalid,
		Status:  422,
		Message: msg,
	}
}

// NewPersistence creates a 500 error for storage write failures. The
// in-memory mutation has already happened and is not rolled back.
func NewPersistence(err error) *JotError {
	return &JotError{
		Code:    ErrPersistence,
		Status:  500,
		Message: fmt.Sprintf("failed to persist notes: %v", err),
		Details: map[string]any{"cause": err},
	}
}

// NewNotFound creates a 404 error for when a note cannot be found.
func NewNotFound(id string) *JotError {
	return &JotError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *JotError {
	return &JotError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *JotError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &JotError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a JotError with the given code.
func Is(err error, code ErrorCode) bool {
	if jErr, ok := err.(*JotError); ok {
		return jErr.Code == code
	}
	return false
}
