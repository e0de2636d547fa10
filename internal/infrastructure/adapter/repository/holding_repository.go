package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	"github.com/amirhossein-jamali/trading-ledger/internal/infrastructure/adapter/model"
)

// HoldingRepository implements the HoldingRepository port using GORM
type HoldingRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewHoldingRepository creates a new HoldingRepository instance
func NewHoldingRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *HoldingRepository {
	return &HoldingRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// holdingToEntity converts a holding model to an entity
func holdingToEntity(m *model.Holding) *entity.Holding {
	return &entity.Holding{
		ID:        m.ID,
		UserID:    m.UserID,
		Symbol:    m.StockSymbol,
		Name:      m.StockName,
		Quantity:  m.Quantity,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// handleDatabaseError standardizes database error handling
func (r *HoldingRepository) handleDatabaseError(operation string, err error, userID uint64, symbol string) error {
	r.logger.Error(fmt.Sprintf("Database error when %s", operation), map[string]any{
		"user_id": userID,
		"symbol":  symbol,
		"error":   err.Error(),
	})

	if r.errorClassifier.IsLockError(err) {
		return errs.ErrUserLocked
	}

	return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
}

// Get retrieves the holding for a (user, symbol) pair; nil means absent
func (r *HoldingRepository) Get(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	var holdingModel model.Holding
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND stock_symbol = ?", userID, symbol).
		First(&holdingModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			// Owning none of a symbol is a valid, non-error state
			return nil, nil
		}
		return nil, r.handleDatabaseError("getting holding", result.Error, userID, symbol)
	}

	return holdingToEntity(&holdingModel), nil
}

// GetForUpdate retrieves the holding under a row-level write lock; nil means absent
func (r *HoldingRepository) GetForUpdate(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	var holdingModel model.Holding
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND stock_symbol = ?", userID, symbol).
		First(&holdingModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, r.handleDatabaseError("locking holding", result.Error, userID, symbol)
	}

	return holdingToEntity(&holdingModel), nil
}

// Create inserts a new holding row and copies the assigned ID back
func (r *HoldingRepository) Create(ctx context.Context, holding *entity.Holding) error {
	holdingModel := model.Holding{
		UserID:      holding.UserID,
		StockSymbol: holding.Symbol,
		StockName:   holding.Name,
		Quantity:    holding.Quantity,
		CreatedAt:   holding.CreatedAt,
		UpdatedAt:   holding.UpdatedAt,
	}

	result := r.db.WithContext(ctx).Create(&holdingModel)
	if result.Error != nil {
		// The composite unique index rejects a second row for the pair
		if r.errorClassifier.IsDuplicateKeyError(result.Error) {
			r.logger.Warn("Holding row already exists for pair", map[string]any{
				"user_id": holding.UserID,
				"symbol":  holding.Symbol,
			})
			return errs.ErrUserLocked
		}
		return r.handleDatabaseError("creating holding", result.Error, holding.UserID, holding.Symbol)
	}

	holding.ID = holdingModel.ID
	return nil
}

// UpdateQuantity writes a holding's share quantity
func (r *HoldingRepository) UpdateQuantity(ctx context.Context, holding *entity.Holding) error {
	result := r.db.WithContext(ctx).Model(&model.Holding{}).
		Where("id = ?", holding.ID).
		Updates(map[string]any{
			"quantity":   holding.Quantity,
			"updated_at": holding.UpdatedAt,
		})

	if result.Error != nil {
		return r.handleDatabaseError("updating holding", result.Error, holding.UserID, holding.Symbol)
	}

	if result.RowsAffected == 0 {
		r.logger.Warn("Holding disappeared during update", map[string]any{
			"user_id": holding.UserID,
			"symbol":  holding.Symbol,
		})
		return errs.ErrUserLocked
	}

	return nil
}

// Delete removes a holding row entirely
func (r *HoldingRepository) Delete(ctx context.Context, holding *entity.Holding) error {
	result := r.db.WithContext(ctx).Delete(&model.Holding{}, holding.ID)
	if result.Error != nil {
		return r.handleDatabaseError("deleting holding", result.Error, holding.UserID, holding.Symbol)
	}

	if result.RowsAffected == 0 {
		r.logger.Warn("Holding disappeared during delete", map[string]any{
			"user_id": holding.UserID,
			"symbol":  holding.Symbol,
		})
		return errs.ErrUserLocked
	}

	return nil
}

// List returns all holdings ordered by insertion
func (r *HoldingRepository) List(ctx context.Context) ([]*entity.Holding, error) {
	var holdingModels []model.Holding
	result := r.db.WithContext(ctx).Order("id").Find(&holdingModels)
	if result.Error != nil {
		return nil, r.handleDatabaseError("listing holdings", result.Error, 0, "")
	}

	holdings := make([]*entity.Holding, 0, len(holdingModels))
	for i := range holdingModels {
		holdings = append(holdings, holdingToEntity(&holdingModels[i]))
	}
	return holdings, nil
}

// ListByUser returns one user's holdings ordered by symbol
func (r *HoldingRepository) ListByUser(ctx context.Context, userID uint64) ([]*entity.Holding, error) {
	var holdingModels []model.Holding
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("stock_symbol").
		Find(&holdingModels)
	if result.Error != nil {
		return nil, r.handleDatabaseError("listing user holdings", result.Error, userID, "")
	}

	holdings := make([]*entity.Holding, 0, len(holdingModels))
	for i := range holdingModels {
		holdings = append(holdings, holdingToEntity(&holdingModels[i]))
	}
	return holdings, nil
}
