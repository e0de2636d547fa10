package trade

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/persistence"
)

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) SetLevel(core.LogLevel)            {}
func (nopLogger) GetLevel() core.LogLevel           { return core.LogLevelError }
func (nopLogger) Debug(string, map[string]any)      {}
func (nopLogger) Info(string, map[string]any)       {}
func (nopLogger) Warn(string, map[string]any)       {}
func (nopLogger) Error(string, map[string]any)      {}
func (nopLogger) Flush() error                      { return nil }

// fakeClock is a fixed clock that counts sleeps instead of waiting
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps int
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Since(t time.Time) core.Duration { return core.Duration(c.now.Sub(t)) }

func (c *fakeClock) Sleep(core.Duration) {
	c.mu.Lock()
	c.sleeps++
	c.mu.Unlock()
}

func (c *fakeClock) SleepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sleeps
}

func (c *fakeClock) WithTimeout(ctx context.Context, _ core.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// memoryStore is the committed ledger state shared by all transactions
type memoryStore struct {
	mu            sync.Mutex
	users         map[uint64]*entity.User
	holdings      map[string]*entity.Holding
	nextHoldingID uint64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:    make(map[uint64]*entity.User),
		holdings: make(map[string]*entity.Holding),
	}
}

func holdingKey(userID uint64, symbol string) string {
	return fmt.Sprintf("%d/%s", userID, symbol)
}

func (s *memoryStore) seedUser(t testingT, id uint64, balance string, clock core.TimeProvider) *entity.User {
	user, err := entity.NewUser("Test", "User", fmt.Sprintf("user%d", id), "secret", balance, clock)
	if err != nil {
		t.Fatalf("seedUser: %v", err)
	}
	user.ID = id
	s.users[id] = user
	return user
}

func (s *memoryStore) seedHolding(t testingT, userID uint64, symbol, name, quantity string, clock core.TimeProvider) *entity.Holding {
	q, err := entity.ParseQuantity(quantity)
	if err != nil {
		t.Fatalf("seedHolding: %v", err)
	}
	holding, err := entity.NewHolding(userID, symbol, name, q, clock)
	if err != nil {
		t.Fatalf("seedHolding: %v", err)
	}
	s.nextHoldingID++
	holding.ID = s.nextHoldingID
	s.holdings[holdingKey(userID, symbol)] = holding
	return holding
}

// testingT is the subset of *testing.T the fakes need
type testingT interface {
	Fatalf(format string, args ...any)
}

// txState is one transaction's private copy of the store
type txState struct {
	users         map[uint64]*entity.User
	holdings      map[string]*entity.Holding
	nextHoldingID uint64
}

type fakeTxKey struct{}

// fakeUnitOfWork applies transactions against a memoryStore with
// copy-on-begin snapshot semantics
type fakeUnitOfWork struct {
	store *memoryStore

	mu           sync.Mutex
	lockFailures int // GetByIDForUpdate fails this many times with ErrUserLocked
	begins       int
	commits      int
	rollbacks    int
}

func newFakeUnitOfWork(store *memoryStore) *fakeUnitOfWork {
	return &fakeUnitOfWork{store: store}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	tx := &txState{
		users:         make(map[uint64]*entity.User, len(u.store.users)),
		holdings:      make(map[string]*entity.Holding, len(u.store.holdings)),
		nextHoldingID: u.store.nextHoldingID,
	}
	for id, user := range u.store.users {
		clone := *user
		tx.users[id] = &clone
	}
	for key, holding := range u.store.holdings {
		clone := *holding
		tx.holdings[key] = &clone
	}

	u.mu.Lock()
	u.begins++
	u.mu.Unlock()

	return context.WithValue(ctx, fakeTxKey{}, tx), nil
}

func (u *fakeUnitOfWork) Commit(ctx context.Context) error {
	tx, ok := ctx.Value(fakeTxKey{}).(*txState)
	if !ok {
		return errs.ErrTransactionFailed
	}

	u.store.mu.Lock()
	u.store.users = tx.users
	u.store.holdings = tx.holdings
	u.store.nextHoldingID = tx.nextHoldingID
	u.store.mu.Unlock()

	u.mu.Lock()
	u.commits++
	u.mu.Unlock()
	return nil
}

func (u *fakeUnitOfWork) Rollback(ctx context.Context) error {
	u.mu.Lock()
	u.rollbacks++
	u.mu.Unlock()
	return nil
}

func (u *fakeUnitOfWork) GetUserRepository(ctx context.Context) persistence.UserRepository {
	return &fakeUserRepo{uow: u}
}

func (u *fakeUnitOfWork) GetHoldingRepository(ctx context.Context) persistence.HoldingRepository {
	return &fakeHoldingRepo{uow: u}
}

func txFromContext(ctx context.Context) *txState {
	tx, _ := ctx.Value(fakeTxKey{}).(*txState)
	return tx
}

// fakeUserRepo reads and writes the transaction snapshot
type fakeUserRepo struct {
	uow *fakeUnitOfWork
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uint64) (*entity.User, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	user, ok := tx.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*entity.User, error) {
	r.uow.mu.Lock()
	if r.uow.lockFailures > 0 {
		r.uow.lockFailures--
		r.uow.mu.Unlock()
		return nil, errs.ErrUserLocked
	}
	r.uow.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r *fakeUserRepo) GetByUserName(ctx context.Context, userName string) (*entity.User, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	for _, user := range tx.users {
		if user.UserName == userName {
			return user, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errs.ErrTransactionFailed
	}
	user.ID = uint64(len(tx.users) + 1)
	tx.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateBalance(ctx context.Context, user *entity.User) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errs.ErrTransactionFailed
	}
	if _, ok := tx.users[user.ID]; !ok {
		return errs.ErrUserNotFound
	}
	tx.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	users := make([]*entity.User, 0, len(tx.users))
	for _, user := range tx.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// fakeHoldingRepo reads and writes the transaction snapshot
type fakeHoldingRepo struct {
	uow *fakeUnitOfWork
}

func (r *fakeHoldingRepo) Get(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	return tx.holdings[holdingKey(userID, symbol)], nil
}

func (r *fakeHoldingRepo) GetForUpdate(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	return r.Get(ctx, userID, symbol)
}

func (r *fakeHoldingRepo) Create(ctx context.Context, holding *entity.Holding) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errs.ErrTransactionFailed
	}
	tx.nextHoldingID++
	holding.ID = tx.nextHoldingID
	tx.holdings[holdingKey(holding.UserID, holding.Symbol)] = holding
	return nil
}

func (r *fakeHoldingRepo) UpdateQuantity(ctx context.Context, holding *entity.Holding) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errs.ErrTransactionFailed
	}
	tx.holdings[holdingKey(holding.UserID, holding.Symbol)] = holding
	return nil
}

func (r *fakeHoldingRepo) Delete(ctx context.Context, holding *entity.Holding) error {
	tx := txFromContext(ctx)
	if tx == nil {
		return errs.ErrTransactionFailed
	}
	delete(tx.holdings, holdingKey(holding.UserID, holding.Symbol))
	return nil
}

func (r *fakeHoldingRepo) List(ctx context.Context) ([]*entity.Holding, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	holdings := make([]*entity.Holding, 0, len(tx.holdings))
	for _, holding := range tx.holdings {
		holdings = append(holdings, holding)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].ID < holdings[j].ID })
	return holdings, nil
}

func (r *fakeHoldingRepo) ListByUser(ctx context.Context, userID uint64) ([]*entity.Holding, error) {
	tx := txFromContext(ctx)
	if tx == nil {
		return nil, errs.ErrTransactionFailed
	}
	holdings := make([]*entity.Holding, 0)
	for _, holding := range tx.holdings {
		if holding.UserID == userID {
			holdings = append(holdings, holding)
		}
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}
