package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// User represents a trading account with a cash balance
type User struct {
	ID           uint64    // Unique identifier, assigned by the store on creation
	FirstName    string    // Given name
	LastName     string    // Family name
	UserName     string    // Unique login name
	passwordHash string    // SHA-256 hex digest of the password (private)
	balance      int64     // Cash balance stored in cents to avoid floating point drift (private)
	CreatedAt    time.Time // When the user was created
	UpdatedAt    time.Time // When the user was last updated
}

// NewUser creates a new user with the given names and initial balance.
// The password is hashed before it is stored; the clear text is never kept.
func NewUser(firstName, lastName, userName, password, initialBalance string, timeProvider coreport.TimeProvider) (*User, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	userName = strings.TrimSpace(userName)

	if firstName == "" || lastName == "" || userName == "" || password == "" {
		return nil, fmt.Errorf("%w: all user fields are required", errs.ErrInvalidInput)
	}

	balanceInCents, err := ValidateAndConvertAmount(initialBalance)
	if err != nil {
		return nil, err
	}

	now := timeProvider.Now()
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		UserName:     userName,
		passwordHash: HashPassword(password),
		balance:      balanceInCents,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HashPassword returns the SHA-256 hex digest of a clear-text password
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Balance returns the current cash balance in cents (for internal use)
func (u *User) Balance() int64 {
	return u.balance
}

// GetBalance returns the cash balance as a string with 2 decimal places
func (u *User) GetBalance() string {
	return AmountInCentsToString(u.balance)
}

// SetBalance updates the balance directly (for internal use, like repositories)
func (u *User) SetBalance(balanceInCents int64, timeProvider coreport.TimeProvider) {
	u.balance = balanceInCents
	u.UpdatedAt = timeProvider.Now()
}

// PasswordHash returns the stored password digest (for internal use, like repositories)
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// SetPasswordHash restores a stored digest (for internal use, like repositories)
func (u *User) SetPasswordHash(hash string) {
	u.passwordHash = hash
}

// CanDeduct checks if the user has enough cash for a deduction
func (u *User) CanDeduct(amountInCents int64) bool {
	return u.balance >= amountInCents
}

// ApplyCredit adds the amount to the cash balance
func (u *User) ApplyCredit(amountInCents int64, timeProvider coreport.TimeProvider) {
	u.balance += amountInCents
	u.UpdatedAt = timeProvider.Now()
}

// ApplyDebit subtracts the amount from the cash balance if sufficient funds exist.
// Returns error when the balance would go negative.
func (u *User) ApplyDebit(amountInCents int64, timeProvider coreport.TimeProvider) error {
	if u.balance < amountInCents {
		return errs.ErrInsufficientFunds
	}

	u.balance -= amountInCents
	u.UpdatedAt = timeProvider.Now()
	return nil
}
