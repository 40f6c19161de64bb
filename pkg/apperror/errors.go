package apperror

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger Business Logic (LED) ----

// ErrInsufficientFunds reports a transfer debit short of funds. The message
// carries the available balance for user feedback.
func ErrInsufficientFunds(available decimal.Decimal) *AppError {
	return New("LED_001", fmt.Sprintf("Insufficient funds: available balance is %s", available.StringFixed(2)), http.StatusUnprocessableEntity)
}

// ErrReversalInsufficientFunds reports that the original recipient no longer
// holds enough funds to give a transfer back.
func ErrReversalInsufficientFunds(available decimal.Decimal) *AppError {
	return New("LED_002", fmt.Sprintf("Insufficient funds to reverse transfer: recipient balance is %s", available.StringFixed(2)), http.StatusUnprocessableEntity)
}

func ErrInvalidAmount() *AppError {
	return New("LED_003", "Amount must be a positive value with at most two decimal places", http.StatusBadRequest)
}

func ErrSelfTransfer() *AppError {
	return New("LED_004", "Cannot transfer to your own wallet", http.StatusBadRequest)
}

func ErrInvalidTaxID() *AppError {
	return New("LED_005", "Invalid tax-id", http.StatusBadRequest)
}

func ErrAlreadyReversed() *AppError {
	return New("LED_006", "Transaction has already been reversed", http.StatusConflict)
}

func ErrNotReversible() *AppError {
	return New("LED_007", "Reversal transactions cannot be reversed", http.StatusUnprocessableEntity)
}

// ErrReversalForbidden is returned when the acting user owns neither side of
// the transaction being reversed.
func ErrReversalForbidden() *AppError {
	return New("LED_008", "Only a participant of the transaction may reverse it", http.StatusForbidden)
}

// ErrInvalidTransactionState flags a ledger record that violates its own
// invariants (e.g. a reversal target with no destination wallet). The
// operation aborts with no writes.
func ErrInvalidTransactionState(detail string) *AppError {
	return New("LED_009", fmt.Sprintf("Transaction record is in an invalid state: %s", detail), http.StatusInternalServerError)
}

func ErrNotFound(entity string) *AppError {
	return New("LED_010", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrTaxIDExists() *AppError {
	return New("AUTH_002", "A user with this tax-id already exists", http.StatusConflict)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_003", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("LED_003", message, http.StatusBadRequest)
}
