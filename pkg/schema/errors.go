package schema

import "fmt"

// Error codes for structured error reporting. Every rejected operation
// carries one of these so callers can distinguish failure classes without
// parsing messages.
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeBlockNotFound     = "BLOCK_NOT_FOUND"
	ErrCodePortNotFound      = "PORT_NOT_FOUND"
	ErrCodeDirectionMismatch = "DIRECTION_MISMATCH"
	ErrCodeTypeMismatch      = "TYPE_MISMATCH"
	ErrCodeSelfLoop          = "SELF_LOOP"
	ErrCodeDuplicateBlock    = "DUPLICATE_BLOCK"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeVersion           = "VERSION_UNSUPPORTED"
	ErrCodeMalformed         = "MALFORMED_DOCUMENT"
	ErrCodeExpression        = "EXPRESSION_ERROR"
	ErrCodeStore             = "STORE_ERROR"
)

// GraphError is the structured error type for all formula graph operations.
type GraphError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	BlockID string         `json:"block_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *GraphError) Error() string {
	if e.BlockID != "" {
		return fmt.Sprintf("[%s] block %s: %s", e.Code, e.BlockID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

// NewError creates a new GraphError.
func NewError(code, message string) *GraphError {
	return &GraphError{Code: code, Message: message}
}

// NewErrorf creates a new GraphError with a formatted message.
func NewErrorf(code, format string, args ...any) *GraphError {
	return &GraphError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithBlock attaches a block ID to the error.
func (e *GraphError) WithBlock(blockID string) *GraphError {
	e.BlockID = blockID
	return e
}

// WithCause attaches an underlying cause.
func (e *GraphError) WithCause(err error) *GraphError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *GraphError) WithDetails(details map[string]any) *GraphError {
	e.Details = details
	return e
}

// CodeOf extracts the GraphError code from err, or "" if err is not a
// GraphError.
func CodeOf(err error) string {
	if ge, ok := err.(*GraphError); ok {
		return ge.Code
	}
	return ""
}
