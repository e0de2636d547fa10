package persistence

import (
	"context"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
)

// UserRepository defines the ledger's user rows
type UserRepository interface {
	// GetByID retrieves a user by ID
	//
	// Possible errors:
	// - ErrUserNotFound: if no user with the given ID exists
	// - ErrDatabaseConnection: if the database cannot be reached
	GetByID(ctx context.Context, id uint64) (*entity.User, error)

	// GetByIDForUpdate retrieves a user by ID and takes a row-level write lock.
	// Only valid inside a unit of work.
	//
	// Possible errors:
	// - ErrUserNotFound, ErrUserLocked, ErrDatabaseConnection
	GetByIDForUpdate(ctx context.Context, id uint64) (*entity.User, error)

	// GetByUserName retrieves a user by unique user name
	//
	// Possible errors:
	// - ErrUserNotFound, ErrDatabaseConnection
	GetByUserName(ctx context.Context, userName string) (*entity.User, error)

	// Create inserts a new user and assigns its ID
	//
	// Possible errors:
	// - ErrDuplicateUser: if the user name is already taken
	// - ErrDatabaseConnection
	Create(ctx context.Context, user *entity.User) error

	// UpdateBalance writes a user's cash balance
	//
	// Possible errors:
	// - ErrUserNotFound, ErrUserLocked, ErrDatabaseConnection
	UpdateBalance(ctx context.Context, user *entity.User) error

	// List returns all users, ordered by ID
	List(ctx context.Context) ([]*entity.User, error)
}
