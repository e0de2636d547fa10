package persistence

import (
	"context"
)

// UnitOfWork coordinates row mutations across repositories so that a
// trade's holding change and balance change become visible together or
// not at all
type UnitOfWork interface {
	// Begin starts a new transaction and returns a transactional context
	Begin(ctx context.Context) (context.Context, error)

	// Commit commits the transaction in the given context
	Commit(ctx context.Context) error

	// Rollback rolls back the transaction in the given context
	Rollback(ctx context.Context) error

	// GetUserRepository returns a user repository bound to the current transaction
	GetUserRepository(ctx context.Context) UserRepository

	// GetHoldingRepository returns a holding repository bound to the current transaction
	GetHoldingRepository(ctx context.Context) HoldingRepository
}
