package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/persistence"
)

// UserUseCase handles the ledger's user-facing reads and user lifecycle
type UserUseCase struct {
	userRepo     persistence.UserRepository
	holdingRepo  persistence.HoldingRepository
	uow          persistence.UnitOfWork
	timeProvider coreport.TimeProvider
	logger       coreport.Logger
}

// NewUserUseCase creates a new UserUseCase
func NewUserUseCase(
	userRepo persistence.UserRepository,
	holdingRepo persistence.HoldingRepository,
	uow persistence.UnitOfWork,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *UserUseCase {
	return &UserUseCase{
		userRepo:     userRepo,
		holdingRepo:  holdingRepo,
		uow:          uow,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// CreateUser creates a new user and returns it with its assigned ID.
// The user name must be unique; the initial balance must not be negative.
func (u *UserUseCase) CreateUser(ctx context.Context, firstName, lastName, userName, password, initialBalance string) (*entity.User, error) {
	user, err := entity.NewUser(firstName, lastName, userName, password, initialBalance, u.timeProvider)
	if err != nil {
		return nil, err
	}

	// Check the user name before inserting for a clean duplicate error
	_, err = u.userRepo.GetByUserName(ctx, user.UserName)
	if err == nil {
		return nil, errs.ErrDuplicateUser
	}
	if !errors.Is(err, errs.ErrUserNotFound) {
		return nil, err
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		u.logger.Error("Failed to create user", map[string]any{
			"user_name": user.UserName,
			"error":     err.Error(),
		})
		return nil, err
	}

	u.logger.Info("User created", map[string]any{
		"user_id":         user.ID,
		"user_name":       user.UserName,
		"initial_balance": user.GetBalance(),
	})

	return user, nil
}

// GetUser retrieves a user by ID
func (u *UserUseCase) GetUser(ctx context.Context, userID uint64) (*entity.User, error) {
	if userID == 0 {
		return nil, errs.ErrInvalidUserID
	}
	return u.userRepo.GetByID(ctx, userID)
}

// GetBalance returns a user's cash balance as a string with 2 decimal places
func (u *UserUseCase) GetBalance(ctx context.Context, userID uint64) (string, error) {
	user, err := u.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return user.GetBalance(), nil
}

// SetBalance overwrites a user's cash balance directly.
// This is an operator command, not a trade; the amount must not be negative.
func (u *UserUseCase) SetBalance(ctx context.Context, userID uint64, balance string) (string, error) {
	if userID == 0 {
		return "", errs.ErrInvalidUserID
	}

	balanceInCents, err := entity.ValidateAndConvertAmount(balance)
	if err != nil {
		return "", err
	}

	// The overwrite takes the same row lock as a trade so it cannot
	// clobber a concurrently committing trade with a stale read
	txCtx, err := u.uow.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errs.ErrTransactionFailed, err.Error())
	}

	users := u.uow.GetUserRepository(txCtx)
	user, err := users.GetByIDForUpdate(txCtx, userID)
	if err != nil {
		u.rollbackQuietly(txCtx)
		return "", err
	}

	user.SetBalance(balanceInCents, u.timeProvider)
	if err := users.UpdateBalance(txCtx, user); err != nil {
		u.rollbackQuietly(txCtx)
		return "", err
	}

	if err := u.uow.Commit(txCtx); err != nil {
		u.rollbackQuietly(txCtx)
		return "", fmt.Errorf("%w: %s", errs.ErrTransactionFailed, err.Error())
	}

	u.logger.Info("User balance set", map[string]any{
		"user_id":     userID,
		"new_balance": user.GetBalance(),
	})

	return user.GetBalance(), nil
}

// rollbackQuietly rolls back and logs instead of shadowing the caller's error
func (u *UserUseCase) rollbackQuietly(txCtx context.Context) {
	if rbErr := u.uow.Rollback(txCtx); rbErr != nil {
		u.logger.Error("Failed to roll back balance update", map[string]any{
			"error": rbErr.Error(),
		})
	}
}

// ListUsers returns all users ordered by ID
func (u *UserUseCase) ListUsers(ctx context.Context) ([]*entity.User, error) {
	return u.userRepo.List(ctx)
}

// ListHoldings returns a read-only snapshot of all holdings
func (u *UserUseCase) ListHoldings(ctx context.Context) ([]*entity.Holding, error) {
	return u.holdingRepo.List(ctx)
}

// ListUserHoldings returns one user's holdings ordered by symbol
func (u *UserUseCase) ListUserHoldings(ctx context.Context, userID uint64) ([]*entity.Holding, error) {
	if userID == 0 {
		return nil, errs.ErrInvalidUserID
	}
	if _, err := u.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return u.holdingRepo.ListByUser(ctx, userID)
}
