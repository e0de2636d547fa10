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

// UserRepository implements the UserRepository port using GORM
type UserRepository struct {
	db              *gorm.DB
	timeProvider    coreport.TimeProvider
	logger          coreport.Logger
	errorClassifier *ErrorClassifier
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB, timeProvider coreport.TimeProvider, logger coreport.Logger) *UserRepository {
	return &UserRepository{
		db:              db,
		timeProvider:    timeProvider,
		logger:          logger,
		errorClassifier: NewErrorClassifier(),
	}
}

// modelToEntity converts a user model to an entity
func (r *UserRepository) modelToEntity(userModel *model.User) *entity.User {
	user := &entity.User{
		ID:        userModel.ID,
		FirstName: userModel.FirstName,
		LastName:  userModel.LastName,
		UserName:  userModel.UserName,
	}
	user.SetBalance(userModel.Balance, r.timeProvider)
	user.SetPasswordHash(userModel.PasswordHash)
	user.CreatedAt = userModel.CreatedAt
	user.UpdatedAt = userModel.UpdatedAt
	return user
}

// entityToModel converts a user entity to its database model
func entityToModel(user *entity.User) *model.User {
	return &model.User{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		UserName:     user.UserName,
		PasswordHash: user.PasswordHash(),
		Balance:      user.Balance(),
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

// handleDatabaseError standardizes database error handling
func (r *UserRepository) handleDatabaseError(operation string, err error, userID uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.logger.Warn("User not found", map[string]any{
			"user_id":   userID,
			"operation": operation,
		})
		return errs.ErrUserNotFound
	}

	r.logger.Error(fmt.Sprintf("Database error when %s", operation), map[string]any{
		"user_id": userID,
		"error":   err.Error(),
	})

	if r.errorClassifier.IsDuplicateKeyError(err) {
		return errs.ErrDuplicateUser
	}
	if r.errorClassifier.IsLockError(err) {
		return errs.ErrUserLocked
	}

	return fmt.Errorf("%w: %s", errs.ErrDatabaseConnection, err.Error())
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*entity.User, error) {
	var userModel model.User
	result := r.db.WithContext(ctx).First(&userModel, id)
	if result.Error != nil {
		return nil, r.handleDatabaseError("getting user", result.Error, id)
	}

	return r.modelToEntity(&userModel), nil
}

// GetByIDForUpdate retrieves a user by ID under a row-level write lock
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, id uint64) (*entity.User, error) {
	var userModel model.User
	result := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&userModel, id)
	if result.Error != nil {
		return nil, r.handleDatabaseError("locking user", result.Error, id)
	}

	return r.modelToEntity(&userModel), nil
}

// GetByUserName retrieves a user by unique user name
func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (*entity.User, error) {
	var userModel model.User
	result := r.db.WithContext(ctx).Where("user_name = ?", userName).First(&userModel)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, r.handleDatabaseError("getting user by name", result.Error, 0)
	}

	return r.modelToEntity(&userModel), nil
}

// Create inserts a new user and copies the assigned ID back to the entity
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	userModel := entityToModel(user)

	result := r.db.WithContext(ctx).Create(userModel)
	if result.Error != nil {
		return r.handleDatabaseError("creating user", result.Error, user.ID)
	}

	user.ID = userModel.ID

	r.logger.Info("User row created", map[string]any{
		"user_id":   user.ID,
		"user_name": user.UserName,
		"balance":   user.GetBalance(),
	})
	return nil
}

// UpdateBalance writes a user's cash balance
func (r *UserRepository) UpdateBalance(ctx context.Context, user *entity.User) error {
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]any{
			"balance":    user.Balance(),
			"updated_at": user.UpdatedAt,
		})

	if result.Error != nil {
		return r.handleDatabaseError("updating user balance", result.Error, user.ID)
	}

	if result.RowsAffected == 0 {
		r.logger.Warn("User not found during balance update", map[string]any{
			"user_id": user.ID,
		})
		return errs.ErrUserNotFound
	}

	return nil
}

// List returns all users ordered by ID
func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	var userModels []model.User
	result := r.db.WithContext(ctx).Order("id").Find(&userModels)
	if result.Error != nil {
		return nil, r.handleDatabaseError("listing users", result.Error, 0)
	}

	users := make([]*entity.User, 0, len(userModels))
	for i := range userModels {
		users = append(users, r.modelToEntity(&userModels[i]))
	}
	return users, nil
}
