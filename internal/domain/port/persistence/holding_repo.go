package persistence

import (
	"context"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
)

// HoldingRepository defines the ledger's holding rows.
// A (user, symbol) pair has at most one row; quantity-zero rows do not exist.
type HoldingRepository interface {
	// Get retrieves the holding for a (user, symbol) pair.
	// A nil holding with a nil error means the user owns none of that symbol.
	Get(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error)

	// GetForUpdate retrieves the holding and takes a row-level write lock.
	// Only valid inside a unit of work. Nil with nil error means absent.
	GetForUpdate(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error)

	// Create inserts a new holding row
	Create(ctx context.Context, holding *entity.Holding) error

	// UpdateQuantity writes a holding's share quantity
	UpdateQuantity(ctx context.Context, holding *entity.Holding) error

	// Delete removes a holding row entirely
	Delete(ctx context.Context, holding *entity.Holding) error

	// List returns all holdings across users, ordered by insertion
	List(ctx context.Context) ([]*entity.Holding, error)

	// ListByUser returns one user's holdings, ordered by symbol
	ListByUser(ctx context.Context, userID uint64) ([]*entity.Holding, error)
}
