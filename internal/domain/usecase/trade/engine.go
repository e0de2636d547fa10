package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/persistence"
)

// DefaultMaxRetries bounds internal retries of contended trades before
// the failure is surfaced to the caller
const DefaultMaxRetries = 3

// DefaultRetryDelay is the base delay between contention retries
const DefaultRetryDelay = 50 * coreport.Millisecond

// Engine applies buys and sells against the ledger. Each trade either
// fully applies (holding and balance updated together) or has no visible
// effect. A rejected trade is a final answer to that request.
type Engine struct {
	uow          persistence.UnitOfWork
	manager      *Manager
	timeProvider coreport.TimeProvider
	logger       coreport.Logger

	maxRetries int
	retryDelay coreport.Duration
}

// NewEngine creates a trade engine on top of a unit of work
func NewEngine(
	uow persistence.UnitOfWork,
	timeProvider coreport.TimeProvider,
	logger coreport.Logger,
) *Engine {
	return &Engine{
		uow:          uow,
		manager:      NewManager(logger),
		timeProvider: timeProvider,
		logger:       logger,
		maxRetries:   DefaultMaxRetries,
		retryDelay:   DefaultRetryDelay,
	}
}

// WithMaxRetries overrides the contention retry bound
func (e *Engine) WithMaxRetries(maxRetries int) *Engine {
	if maxRetries > 0 {
		e.maxRetries = maxRetries
	}
	return e
}

// Buy purchases shares for cash.
//
// Possible errors: ErrInvalidInput kinds, ErrUserNotFound,
// InsufficientFundsError, ErrTransactionFailed.
func (e *Engine) Buy(ctx context.Context, req BuyRequest) (*entity.TradeResult, error) {
	v, err := validateTrade(req.UserID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		return nil, err
	}

	return e.manager.Execute(ctx, req.UserID, func(ctx context.Context) (*entity.TradeResult, error) {
		return e.applyWithRetry(ctx, req.UserID, v.symbol, string(entity.TradeSideBuy), func(ctx context.Context) (*entity.TradeResult, error) {
			return e.applyBuy(ctx, req.UserID, v, req.ShareName)
		})
	})
}

// Sell sells shares for cash.
//
// Possible errors: ErrInvalidInput kinds, ErrUserNotFound,
// InsufficientHoldingsError, ErrTransactionFailed.
func (e *Engine) Sell(ctx context.Context, req SellRequest) (*entity.TradeResult, error) {
	v, err := validateTrade(req.UserID, req.Symbol, req.Quantity, req.Price)
	if err != nil {
		return nil, err
	}

	return e.manager.Execute(ctx, req.UserID, func(ctx context.Context) (*entity.TradeResult, error) {
		return e.applyWithRetry(ctx, req.UserID, v.symbol, string(entity.TradeSideSell), func(ctx context.Context) (*entity.TradeResult, error) {
			return e.applySell(ctx, req.UserID, v)
		})
	})
}

// Shutdown drains the per-user queues and stops their workers
func (e *Engine) Shutdown() {
	e.manager.Shutdown()
}

// applyWithRetry retries a trade when the storage layer reports lock
// contention. Business-rule rejections are never retried.
func (e *Engine) applyWithRetry(
	ctx context.Context,
	userID uint64,
	symbol, side string,
	apply tradeFunc,
) (*entity.TradeResult, error) {
	var result *entity.TradeResult
	var err error

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := e.retryDelay * coreport.Duration(1<<uint(attempt-1))
			e.logger.Warn("Retrying contended trade", map[string]any{
				"user_id":     userID,
				"symbol":      symbol,
				"side":        side,
				"attempt":     attempt + 1,
				"max_retries": e.maxRetries,
				"retry_after": backoff.Std().String(),
			})

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			e.timeProvider.Sleep(backoff)
		}

		result, err = apply(ctx)
		if err == nil {
			return result, nil
		}

		// Only lock contention is retried
		if !errs.IsUserLockedError(err) {
			return nil, err
		}
	}

	e.logger.Error("Trade failed after retry exhaustion", map[string]any{
		"user_id":     userID,
		"symbol":      symbol,
		"side":        side,
		"max_retries": e.maxRetries,
		"error":       err.Error(),
	})
	return nil, fmt.Errorf("%w: lock contention persisted after %d attempts", errs.ErrTransactionFailed, e.maxRetries)
}

// applyBuy executes a purchase inside one unit of work
func (e *Engine) applyBuy(ctx context.Context, userID uint64, v *validatedTrade, shareName string) (*entity.TradeResult, error) {
	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrTransactionFailed, err.Error())
	}

	users := e.uow.GetUserRepository(txCtx)
	holdings := e.uow.GetHoldingRepository(txCtx)

	user, err := users.GetByIDForUpdate(txCtx, userID)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	totalCost, err := entity.CostInCents(v.quantity, v.priceCents)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	if !user.CanDeduct(totalCost) {
		return nil, e.abort(txCtx, errs.NewInsufficientFundsError(
			userID,
			entity.AmountInCentsToString(totalCost),
			user.GetBalance(),
		))
	}

	holding, err := holdings.GetForUpdate(txCtx, userID, v.symbol)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	if holding == nil {
		holding, err = entity.NewHolding(userID, v.symbol, shareName, v.quantity, e.timeProvider)
		if err != nil {
			return nil, e.abort(txCtx, err)
		}
		if err := holdings.Create(txCtx, holding); err != nil {
			return nil, e.abort(txCtx, err)
		}
	} else {
		// An existing holding keeps its display name from the first buy
		if err := holding.AddShares(v.quantity, e.timeProvider); err != nil {
			return nil, e.abort(txCtx, err)
		}
		if err := holdings.UpdateQuantity(txCtx, holding); err != nil {
			return nil, e.abort(txCtx, err)
		}
	}

	if err := user.ApplyDebit(totalCost, e.timeProvider); err != nil {
		return nil, e.abort(txCtx, err)
	}
	if err := users.UpdateBalance(txCtx, user); err != nil {
		return nil, e.abort(txCtx, err)
	}

	if err := e.uow.Commit(txCtx); err != nil {
		e.rollbackQuietly(txCtx)
		return nil, e.commitError(userID, v.symbol, err)
	}

	e.logger.Info("Buy applied", map[string]any{
		"user_id":     userID,
		"symbol":      v.symbol,
		"quantity":    v.quantity.String(),
		"total_cost":  entity.AmountInCentsToString(totalCost),
		"new_balance": user.GetBalance(),
	})

	return &entity.TradeResult{
		UserID:   userID,
		Symbol:   v.symbol,
		Side:     entity.TradeSideBuy,
		Quantity: holding.Quantity,
		Balance:  user.Balance(),
	}, nil
}

// applySell executes a sale inside one unit of work
func (e *Engine) applySell(ctx context.Context, userID uint64, v *validatedTrade) (*entity.TradeResult, error) {
	txCtx, err := e.uow.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrTransactionFailed, err.Error())
	}

	users := e.uow.GetUserRepository(txCtx)
	holdings := e.uow.GetHoldingRepository(txCtx)

	user, err := users.GetByIDForUpdate(txCtx, userID)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	holding, err := holdings.GetForUpdate(txCtx, userID, v.symbol)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	if holding == nil {
		return nil, e.abort(txCtx, errs.NewInsufficientHoldingsError(
			userID, v.symbol, v.quantity, decimal.Zero,
		))
	}
	if holding.Quantity.LessThan(v.quantity) {
		return nil, e.abort(txCtx, errs.NewInsufficientHoldingsError(
			userID, v.symbol, v.quantity, holding.Quantity,
		))
	}

	proceeds, err := entity.CostInCents(v.quantity, v.priceCents)
	if err != nil {
		return nil, e.abort(txCtx, err)
	}

	// Selling the full position removes the row; no zero-quantity rows persist
	if err := holding.RemoveShares(v.quantity, e.timeProvider); err != nil {
		return nil, e.abort(txCtx, err)
	}
	if holding.IsEmpty() {
		if err := holdings.Delete(txCtx, holding); err != nil {
			return nil, e.abort(txCtx, err)
		}
	} else {
		if err := holdings.UpdateQuantity(txCtx, holding); err != nil {
			return nil, e.abort(txCtx, err)
		}
	}

	user.ApplyCredit(proceeds, e.timeProvider)
	if err := users.UpdateBalance(txCtx, user); err != nil {
		return nil, e.abort(txCtx, err)
	}

	if err := e.uow.Commit(txCtx); err != nil {
		e.rollbackQuietly(txCtx)
		return nil, e.commitError(userID, v.symbol, err)
	}

	e.logger.Info("Sell applied", map[string]any{
		"user_id":     userID,
		"symbol":      v.symbol,
		"quantity":    v.quantity.String(),
		"proceeds":    entity.AmountInCentsToString(proceeds),
		"new_balance": user.GetBalance(),
	})

	return &entity.TradeResult{
		UserID:   userID,
		Symbol:   v.symbol,
		Side:     entity.TradeSideSell,
		Quantity: holding.Quantity,
		Balance:  user.Balance(),
	}, nil
}

// abort rolls the unit of work back and passes the original error through
func (e *Engine) abort(txCtx context.Context, err error) error {
	e.rollbackQuietly(txCtx)
	return err
}

// rollbackQuietly rolls back and logs instead of shadowing the trade error
func (e *Engine) rollbackQuietly(txCtx context.Context) {
	if rbErr := e.uow.Rollback(txCtx); rbErr != nil {
		e.logger.Error("Failed to roll back trade transaction", map[string]any{
			"error": rbErr.Error(),
		})
	}
}

// commitError maps a failed commit to the transaction-failed kind
func (e *Engine) commitError(userID uint64, symbol string, err error) error {
	if errors.Is(err, errs.ErrUserLocked) {
		return err
	}
	e.logger.Error("Trade commit failed", map[string]any{
		"user_id": userID,
		"symbol":  symbol,
		"error":   err.Error(),
	})
	return fmt.Errorf("%w: %s", errs.ErrTransactionFailed, err.Error())
}
