// Package errors provides custom error types for the budgetwatch API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

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

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInUse    = &AppError{Code: "CATEGORY_IN_USE", Message: "Category is used by existing transactions or budgets", StatusCode: http.StatusConflict}
)

// Transaction errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidDateRange    = &AppError{Code: "INVALID_DATE_RANGE", Message: "Invalid date range", StatusCode: http.StatusBadRequest}
)

// Budget errors.
var (
	ErrBudgetNotFound       = &AppError{Code: "BUDGET_NOT_FOUND", Message: "Budget not found", StatusCode: http.StatusNotFound}
	ErrBudgetAmountTooSmall = &AppError{Code: "BUDGET_AMOUNT_TOO_SMALL", Message: "Budget amount must be at least 100", StatusCode: http.StatusBadRequest}
	ErrBudgetLimitReached   = &AppError{Code: "BUDGET_LIMIT_REACHED", Message: "Maximum number of active budgets reached", StatusCode: http.StatusConflict}
	ErrDuplicateBudget      = &AppError{Code: "DUPLICATE_BUDGET", Message: "An active budget already exists for this category, period, and start date", StatusCode: http.StatusConflict}
)

// Alert errors.
var (
	ErrAlertNotFound = &AppError{Code: "ALERT_NOT_FOUND", Message: "Alert not found", StatusCode: http.StatusNotFound}
)

// Auto-adjustment errors. Policy-gate outcomes that are decisions rather
// than failures (requires approval) are returned as successful responses;
// only hard refusals live here.
var (
	ErrAutoAdjustDisabled      = &AppError{Code: "AUTO_ADJUST_DISABLED", Message: "Auto-adjustment is not enabled for this budget", StatusCode: http.StatusBadRequest}
	ErrInsufficientHistory     = &AppError{Code: "INSUFFICIENT_HISTORY", Message: "Not enough spending history to compute an adjustment", StatusCode: http.StatusUnprocessableEntity}
	ErrAlreadyAdjusted         = &AppError{Code: "ALREADY_ADJUSTED", Message: "This budget was already auto-adjusted in the current period", StatusCode: http.StatusConflict}
	ErrInvalidAdjustmentReason = &AppError{Code: "INVALID_ADJUSTMENT_REASON", Message: "Unknown adjustment reason", StatusCode: http.StatusBadRequest}
)
