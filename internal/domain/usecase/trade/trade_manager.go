package trade

import (
	"context"
	"sync"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
)

// Manager serializes trades per user so that two concurrent buys or sells
// against the same user cannot race past each other's read-then-write of
// balance and quantity. Trades for different users run independently.
type Manager struct {
	logger coreport.Logger

	// User-keyed queues for strict per-user ordering
	userQueues     sync.Map // map[uint64]chan *tradeTask
	queueWaitGroup sync.WaitGroup

	// senderWaitGroup tracks callers between the shutdown check and the
	// queue send; Shutdown must not close a queue while one is pending
	senderWaitGroup sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

// tradeFunc applies one trade and returns its result
type tradeFunc func(ctx context.Context) (*entity.TradeResult, error)

// tradeTask represents a queued trade
type tradeTask struct {
	ctx        context.Context
	apply      tradeFunc
	resultChan chan *tradeOutcome
}

// tradeOutcome represents the result of a processed trade
type tradeOutcome struct {
	result *entity.TradeResult
	err    error
}

// NewManager creates a new per-user trade serialization manager
func NewManager(logger coreport.Logger) *Manager {
	return &Manager{
		logger:     logger,
		userQueues: sync.Map{},
	}
}

// Execute queues a trade on the user's queue and waits for its result.
// Trades on one queue are applied strictly one at a time.
func (m *Manager) Execute(ctx context.Context, userID uint64, apply tradeFunc) (*entity.TradeResult, error) {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, errs.ErrServerShutdown
	}

	var queue chan *tradeTask
	queueIface, loaded := m.userQueues.LoadOrStore(userID, make(chan *tradeTask, 64))
	queue, ok := queueIface.(chan *tradeTask)
	if !ok {
		m.mu.Unlock()
		m.logger.Error("Failed to type assert trade queue channel", nil)
		return nil, errs.ErrInternalServer
	}

	// Start a worker the first time this user trades
	if !loaded {
		m.logger.Debug("Starting trade queue worker for user", map[string]any{
			"user_id": userID,
		})
		m.queueWaitGroup.Add(1)
		go m.processUserTrades(userID, queue)
	}

	// Registered before the mutex is released so Shutdown waits for the
	// send instead of closing the queue underneath it
	m.senderWaitGroup.Add(1)
	m.mu.Unlock()

	task := &tradeTask{
		ctx:        ctx,
		apply:      apply,
		resultChan: make(chan *tradeOutcome, 1),
	}

	select {
	case queue <- task:
		m.senderWaitGroup.Done()
	case <-ctx.Done():
		m.senderWaitGroup.Done()
		m.logger.Warn("Context canceled while enqueueing trade", map[string]any{
			"user_id": userID,
			"error":   ctx.Err().Error(),
		})
		return nil, ctx.Err()
	}

	select {
	case outcome := <-task.resultChan:
		return outcome.result, outcome.err
	case <-ctx.Done():
		m.logger.Warn("Context canceled while waiting for trade result", map[string]any{
			"user_id": userID,
			"error":   ctx.Err().Error(),
		})
		return nil, ctx.Err()
	}
}

// processUserTrades is the worker goroutine for one user's queue
func (m *Manager) processUserTrades(userID uint64, queue chan *tradeTask) {
	defer m.queueWaitGroup.Done()

	for task := range queue {
		result, err := task.apply(task.ctx)
		task.resultChan <- &tradeOutcome{result: result, err: err}
		close(task.resultChan)
	}

	m.logger.Debug("Trade queue worker stopped", map[string]any{
		"user_id": userID,
	})
}

// Shutdown stops all worker goroutines cleanly. Queued trades are still
// applied; new trades are rejected.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true
	m.mu.Unlock()

	m.logger.Info("Shutting down trade manager", nil)

	// Let senders that already passed the shutdown check finish their
	// sends; the workers keep draining so none of them blocks forever
	m.senderWaitGroup.Wait()

	m.userQueues.Range(func(userID, queueIface any) bool {
		if queue, ok := queueIface.(chan *tradeTask); ok {
			close(queue)
		}
		return true
	})

	m.queueWaitGroup.Wait()
	m.logger.Info("Trade manager shut down", nil)
}
