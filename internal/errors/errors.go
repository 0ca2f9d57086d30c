package errors

import "fmt"

// ErrorCode represents a workspace error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotADocument   ErrorCode = "NOT_A_DOCUMENT"  // 400
	ErrProtected      ErrorCode = "PROTECTED"       // 403
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrAlreadyExists  ErrorCode = "ALREADY_EXISTS"  // 409
	ErrEncodeFailed   ErrorCode = "ENCODE_FAILED"   // 422
	ErrDecodeFailed   ErrorCode = "DECODE_FAILED"   // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrStoreIO        ErrorCode = "STORE_IO"        // 503
)

// WorkspaceError represents a structured error with code, status, and details.
type WorkspaceError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *WorkspaceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *WorkspaceError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotADocument creates a 400 error when a folder or binary asset is opened as text.
func NewNotADocument(id string) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrNotADocument,
		Status:  400,
		Message: fmt.Sprintf("not an editable document: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewProtected creates a 403 error for operations on the main document.
func NewProtected(id, op string) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrProtected,
		Status:  403,
		Message: fmt.Sprintf("cannot %s protected file %s", op, id),
		Details: map[string]any{"id": id, "operation": op},
	}
}

// NewNotFound creates a 404 error for when a file cannot be found.
func NewNotFound(id string) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewAlreadyExists creates a 409 error for id collisions.
func NewAlreadyExists(id string) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("file already exists: %s", id),
		Details: map[string]any{"id": id},
	}
}

// NewEncodeFailed creates a 422 error when an asset payload cannot be encoded.
func NewEncodeFailed(id string, err error) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrEncodeFailed,
		Status:  422,
		Message: fmt.Sprintf("failed to encode asset %s: %v", id, err),
		Details: map[string]any{"id": id},
		cause:   err,
	}
}

// NewDecodeFailed creates a 422 error when a persisted payload cannot be decoded.
func NewDecodeFailed(id string, err error) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrDecodeFailed,
		Status:  422,
		Message: fmt.Sprintf("failed to decode asset %s: %v", id, err),
		Details: map[string]any{"id": id},
		cause:   err,
	}
}

// NewStoreIO creates a 503 error for durable store read/write failures.
func NewStoreIO(op string, err error) *WorkspaceError {
	return &WorkspaceError{
		Code:    ErrStoreIO,
		Status:  503,
		Message: fmt.Sprintf("store %s failed: %v", op, err),
		Details: map[string]any{"operation": op},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *WorkspaceError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &WorkspaceError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is a WorkspaceError with the given code.
func Is(err error, code ErrorCode) bool {
	if wErr, ok := err.(*WorkspaceError); ok {
		return wErr.Code == code
	}
	return false
}
