package error

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes for standardized responses
const (
	// 4xxx - Client errors
	CodeInvalidInput         = 4001
	CodeInvalidAmount        = 4002
	CodeInvalidUserID        = 4003
	CodeInvalidQuantity      = 4004
	CodeInsufficientFunds    = 4010
	CodeInsufficientHoldings = 4011
	CodeUserNotFound         = 4040
	CodeDuplicateUser        = 4090
	CodeUserLocked           = 4230

	// 5xxx - Server errors
	CodeInternalServer    = 5000
	CodeTransactionFailed = 5001
)

// Base error types
var (
	// ErrInvalidInput is returned when a command carries malformed or missing arguments
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned when a monetary amount format is invalid
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrNegativeAmount is returned when a monetary amount is negative
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrAmountOverflow is returned when an amount is too large and would cause overflow
	ErrAmountOverflow = errors.New("amount is too large and would cause overflow")

	// ErrInvalidQuantity is returned when a share quantity is zero, negative or malformed
	ErrInvalidQuantity = errors.New("invalid share quantity")

	// ErrInvalidUserID is returned when the user ID is not a positive integer
	ErrInvalidUserID = errors.New("user ID must be positive")

	// ErrInvalidSymbol is returned when a stock symbol is empty
	ErrInvalidSymbol = errors.New("stock symbol cannot be empty")

	// ErrInsufficientFunds is returned when a buy exceeds the user's cash balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientHoldings is returned when a sell exceeds the user's holding
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrDuplicateUser is returned when the user name is already taken
	ErrDuplicateUser = errors.New("user already exists")

	// ErrUserNotFound is returned when the requested user doesn't exist
	ErrUserNotFound = errors.New("user not found")

	// ErrUserLocked is returned when a user's ledger rows are locked by another operation
	ErrUserLocked = errors.New("user is locked by another operation")

	// ErrTransactionFailed is returned when the storage layer could not commit a trade
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrDatabaseConnection is returned when there's a problem connecting to the database
	ErrDatabaseConnection = errors.New("database connection error")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")

	// ErrServerShutdown is returned when the server is no longer accepting commands
	ErrServerShutdown = errors.New("server is shutting down")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount), errors.Is(err, ErrAmountOverflow):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidQuantity):
		return CodeInvalidQuantity
	case errors.Is(err, ErrInvalidUserID):
		return CodeInvalidUserID
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidSymbol):
		return CodeInvalidInput
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrInsufficientHoldings):
		return CodeInsufficientHoldings
	case errors.Is(err, ErrDuplicateUser):
		return CodeDuplicateUser
	case errors.Is(err, ErrUserNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrUserLocked):
		return CodeUserLocked
	case errors.Is(err, ErrTransactionFailed):
		return CodeTransactionFailed
	default:
		return CodeInternalServer
	}
}

// InsufficientFundsError provides detailed error information for a rejected buy
type InsufficientFundsError struct {
	UserID    uint64
	Required  string
	Available string
}

// Error implements the error interface
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d: required %s, available %s",
		e.UserID, e.Required, e.Available)
}

// Is checks if the target error is an ErrInsufficientFunds
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientFundsError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "insufficient_funds",
		"user_id":    e.UserID,
		"required":   e.Required,
		"available":  e.Available,
		"error_code": CodeInsufficientFunds,
	}
}

// NewInsufficientFundsError creates a new detailed insufficient funds error
func NewInsufficientFundsError(userID uint64, required, available string) error {
	return &InsufficientFundsError{
		UserID:    userID,
		Required:  required,
		Available: available,
	}
}

// InsufficientHoldingsError provides detailed error information for a rejected sell
type InsufficientHoldingsError struct {
	UserID    uint64
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

// Error implements the error interface
func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings of %s for user %d: requested %s, available %s",
		e.Symbol, e.UserID, e.Requested.String(), e.Available.String())
}

// Is checks if the target error is an ErrInsufficientHoldings
func (e *InsufficientHoldingsError) Is(target error) bool {
	return target == ErrInsufficientHoldings
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientHoldingsError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "insufficient_holdings",
		"user_id":    e.UserID,
		"symbol":     e.Symbol,
		"requested":  e.Requested.String(),
		"available":  e.Available.String(),
		"error_code": CodeInsufficientHoldings,
	}
}

// NewInsufficientHoldingsError creates a new detailed insufficient holdings error
func NewInsufficientHoldingsError(userID uint64, symbol string, requested, available decimal.Decimal) error {
	return &InsufficientHoldingsError{
		UserID:    userID,
		Symbol:    symbol,
		Requested: requested,
		Available: available,
	}
}

// TradeError represents an error raised while applying a buy or sell
type TradeError struct {
	UserID uint64
	Symbol string
	Side   string
	Reason string
	Err    error
}

// Error implements the error interface for TradeError
func (e *TradeError) Error() string {
	return fmt.Sprintf("%s %s failed for user %d: %s - %v",
		e.Side, e.Symbol, e.UserID, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *TradeError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *TradeError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "trade_error",
		"user_id":    e.UserID,
		"symbol":     e.Symbol,
		"side":       e.Side,
		"reason":     e.Reason,
		"error":      e.Err.Error(),
		"error_code": ErrorCode(e.Err),
	}
}

// NewTradeError creates a detailed trade error
func NewTradeError(userID uint64, symbol, side, reason string, err error) error {
	return &TradeError{
		UserID: userID,
		Symbol: symbol,
		Side:   side,
		Reason: reason,
		Err:    err,
	}
}

// IsInvalidInputError checks if the error is any malformed-argument error
func IsInvalidInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrAmountOverflow) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidUserID) ||
		errors.Is(err, ErrInvalidSymbol)
}

// IsInsufficientFundsError checks if the error is related to insufficient funds
func IsInsufficientFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsInsufficientHoldingsError checks if the error is related to insufficient holdings
func IsInsufficientHoldingsError(err error) bool {
	return errors.Is(err, ErrInsufficientHoldings)
}

// IsUserNotFoundError checks if the error is a user not found error
func IsUserNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsDuplicateUserError checks if the error is a duplicate user error
func IsDuplicateUserError(err error) bool {
	return errors.Is(err, ErrDuplicateUser)
}

// IsUserLockedError checks if the error is related to a locked user
func IsUserLockedError(err error) bool {
	return errors.Is(err, ErrUserLocked)
}

// IsTransactionFailedError checks if the error is a storage-layer failure
func IsTransactionFailedError(err error) bool {
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrDatabaseConnection)
}
