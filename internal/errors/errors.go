// Package errors provides the application error type for the finbook API.
// Services return AppError values so handlers can answer with a stable code
// and status without leaking internal details to clients.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches any AppError carrying the same code, so a wrapped or re-messaged
// sentinel still satisfies errors.Is against the original.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authorization errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
)

// General errors.
var (
	ErrValidation             = &AppError{Code: "VALIDATION_ERROR", Message: "Validation failed", StatusCode: http.StatusBadRequest}
	ErrInvalidInput           = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrMissingParameter       = &AppError{Code: "MISSING_PARAMETER", Message: "A required parameter is missing", StatusCode: http.StatusBadRequest}
	ErrUnsupportedAggregation = &AppError{Code: "UNSUPPORTED_AGGREGATION", Message: "Unsupported aggregation", StatusCode: http.StatusBadRequest}
	ErrMalformedStatement     = &AppError{Code: "MALFORMED_STATEMENT", Message: "The statement file could not be parsed", StatusCode: http.StatusBadRequest}
	ErrNotFound               = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer         = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrAccountInUse    = &AppError{Code: "ACCOUNT_IN_USE", Message: "Account is referenced by records or contracts", StatusCode: http.StatusConflict}
	ErrDuplicateIBAN   = &AppError{Code: "DUPLICATE_IBAN", Message: "An account with this IBAN already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound    = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse       = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is referenced by records or contracts", StatusCode: http.StatusConflict}
	ErrCategoryHasChildren = &AppError{Code: "CATEGORY_HAS_CHILDREN", Message: "Category has child categories", StatusCode: http.StatusConflict}
	ErrCategoryCycle       = &AppError{Code: "CATEGORY_CYCLE", Message: "A category cannot be its own ancestor", StatusCode: http.StatusBadRequest}
	ErrDuplicateCategory   = &AppError{Code: "DUPLICATE_CATEGORY", Message: "A category with this name already exists", StatusCode: http.StatusConflict}
)

// Contract errors.
var (
	ErrContractNotFound = &AppError{Code: "CONTRACT_NOT_FOUND", Message: "Contract not found", StatusCode: http.StatusNotFound}
	ErrContractInUse    = &AppError{Code: "CONTRACT_IN_USE", Message: "Contract is referenced by records", StatusCode: http.StatusConflict}
)

// Record errors.
var (
	ErrRecordNotFound = &AppError{Code: "RECORD_NOT_FOUND", Message: "Record not found", StatusCode: http.StatusNotFound}
	ErrRecordInUse    = &AppError{Code: "RECORD_IN_USE", Message: "Record is the counter booking of another record", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrAlreadyImported     = &AppError{Code: "ALREADY_IMPORTED", Message: "Transaction already has linked records", StatusCode: http.StatusConflict}
	ErrNotIgnored          = &AppError{Code: "NOT_IGNORED", Message: "Transaction is not ignored", StatusCode: http.StatusConflict}
	ErrNotLinked           = &AppError{Code: "NOT_LINKED", Message: "Record is not linked to this transaction", StatusCode: http.StatusConflict}
)

// Upload errors.
var (
	ErrPayloadTooLarge = &AppError{Code: "PAYLOAD_TOO_LARGE", Message: "Uploaded files exceed the size limit", StatusCode: http.StatusRequestEntityTooLarge}
)
