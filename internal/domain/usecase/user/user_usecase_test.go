package user

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirhossein-jamali/trading-ledger/internal/domain/entity"
	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	"github.com/amirhossein-jamali/trading-ledger/internal/domain/port/persistence"
)

// stubClock is a fixed clock for use case tests
type stubClock struct{ now time.Time }

func newStubClock() *stubClock {
	return &stubClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stubClock) Now() time.Time                  { return c.now }
func (c *stubClock) Since(t time.Time) core.Duration { return core.Duration(c.now.Sub(t)) }
func (c *stubClock) Sleep(core.Duration)             {}
func (c *stubClock) WithTimeout(ctx context.Context, _ core.Duration) (context.Context, context.CancelFunc) {
	return context.WithCancel(ctx)
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) SetLevel(core.LogLevel)       {}
func (nopLogger) GetLevel() core.LogLevel      { return core.LogLevelError }
func (nopLogger) Debug(string, map[string]any) {}
func (nopLogger) Info(string, map[string]any)  {}
func (nopLogger) Warn(string, map[string]any)  {}
func (nopLogger) Error(string, map[string]any) {}
func (nopLogger) Flush() error                 { return nil }

// memUserRepo is an in-memory UserRepository
type memUserRepo struct {
	users          map[uint64]*entity.User
	nextID         uint64
	forUpdateReads int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uint64]*entity.User)}
}

func (r *memUserRepo) GetByID(ctx context.Context, id uint64) (*entity.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound
	}
	return user, nil
}

func (r *memUserRepo) GetByIDForUpdate(ctx context.Context, id uint64) (*entity.User, error) {
	r.forUpdateReads++
	return r.GetByID(ctx, id)
}

func (r *memUserRepo) GetByUserName(ctx context.Context, userName string) (*entity.User, error) {
	for _, user := range r.users {
		if user.UserName == userName {
			return user, nil
		}
	}
	return nil, errs.ErrUserNotFound
}

func (r *memUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) UpdateBalance(ctx context.Context, user *entity.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return errs.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) List(ctx context.Context) ([]*entity.User, error) {
	users := make([]*entity.User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// memHoldingRepo is an in-memory HoldingRepository
type memHoldingRepo struct {
	holdings []*entity.Holding
}

func (r *memHoldingRepo) Get(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	for _, h := range r.holdings {
		if h.UserID == userID && h.Symbol == symbol {
			return h, nil
		}
	}
	return nil, nil
}

func (r *memHoldingRepo) GetForUpdate(ctx context.Context, userID uint64, symbol string) (*entity.Holding, error) {
	return r.Get(ctx, userID, symbol)
}

func (r *memHoldingRepo) Create(ctx context.Context, holding *entity.Holding) error {
	holding.ID = uint64(len(r.holdings) + 1)
	r.holdings = append(r.holdings, holding)
	return nil
}

func (r *memHoldingRepo) UpdateQuantity(ctx context.Context, holding *entity.Holding) error {
	return nil
}

func (r *memHoldingRepo) Delete(ctx context.Context, holding *entity.Holding) error {
	kept := r.holdings[:0]
	for _, h := range r.holdings {
		if h.ID != holding.ID {
			kept = append(kept, h)
		}
	}
	r.holdings = kept
	return nil
}

func (r *memHoldingRepo) List(ctx context.Context) ([]*entity.Holding, error) {
	return r.holdings, nil
}

func (r *memHoldingRepo) ListByUser(ctx context.Context, userID uint64) ([]*entity.Holding, error) {
	result := make([]*entity.Holding, 0)
	for _, h := range r.holdings {
		if h.UserID == userID {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

// memUnitOfWork hands the same repositories through and counts the
// transaction boundary calls
type memUnitOfWork struct {
	userRepo    *memUserRepo
	holdingRepo *memHoldingRepo
	begins      int
	commits     int
	rollbacks   int
}

func (u *memUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	u.begins++
	return ctx, nil
}

func (u *memUnitOfWork) Commit(ctx context.Context) error {
	u.commits++
	return nil
}

func (u *memUnitOfWork) Rollback(ctx context.Context) error {
	u.rollbacks++
	return nil
}

func (u *memUnitOfWork) GetUserRepository(ctx context.Context) persistence.UserRepository {
	return u.userRepo
}

func (u *memUnitOfWork) GetHoldingRepository(ctx context.Context) persistence.HoldingRepository {
	return u.holdingRepo
}

func newTestUseCase() (*UserUseCase, *memUserRepo, *memHoldingRepo, *stubClock) {
	clock := newStubClock()
	userRepo := newMemUserRepo()
	holdingRepo := &memHoldingRepo{}
	uow := &memUnitOfWork{userRepo: userRepo, holdingRepo: holdingRepo}
	uc := NewUserUseCase(userRepo, holdingRepo, uow, clock, nopLogger{})
	return uc, userRepo, holdingRepo, clock
}

func TestCreateUser(t *testing.T) {
	t.Run("Creates a user and assigns an ID", func(t *testing.T) {
		uc, repo, _, _ := newTestUseCase()

		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		assert.Equal(t, uint64(1), user.ID)
		assert.Equal(t, "100.00", user.GetBalance())
		assert.Len(t, repo.users, 1)
	})

	t.Run("IDs are sequential", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()

		first, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "0")
		require.NoError(t, err)
		second, err := uc.CreateUser(context.Background(), "Jane", "Doe", "jane", "secret", "0")
		require.NoError(t, err)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
	})

	t.Run("Duplicate user name rejected", func(t *testing.T) {
		uc, repo, _, _ := newTestUseCase()

		_, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		_, err = uc.CreateUser(context.Background(), "Jane", "Doe", "jdoe", "other", "50.00")
		assert.True(t, errs.IsDuplicateUserError(err))
		assert.Len(t, repo.users, 1)
	})

	t.Run("Invalid initial balance rejected", func(t *testing.T) {
		uc, repo, _, _ := newTestUseCase()

		_, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "-10.00")
		assert.ErrorIs(t, err, errs.ErrNegativeAmount)
		assert.Empty(t, repo.users)
	})
}

func TestGetBalance(t *testing.T) {
	t.Run("Returns the formatted balance", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "42.50")
		require.NoError(t, err)

		balance, err := uc.GetBalance(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "42.50", balance)
	})

	t.Run("Unknown user", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		_, err := uc.GetBalance(context.Background(), 99)
		assert.True(t, errs.IsUserNotFoundError(err))
	})

	t.Run("Zero user ID", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		_, err := uc.GetBalance(context.Background(), 0)
		assert.ErrorIs(t, err, errs.ErrInvalidUserID)
	})
}

func TestSetBalance(t *testing.T) {
	t.Run("Overwrites the balance", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		balance, err := uc.SetBalance(context.Background(), user.ID, "250.75")
		require.NoError(t, err)
		assert.Equal(t, "250.75", balance)

		balance, err = uc.GetBalance(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Equal(t, "250.75", balance)
	})

	t.Run("Negative balance rejected", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		_, err = uc.SetBalance(context.Background(), user.ID, "-1.00")
		assert.ErrorIs(t, err, errs.ErrNegativeAmount)

		balance, _ := uc.GetBalance(context.Background(), user.ID)
		assert.Equal(t, "100.00", balance)
	})

	t.Run("Unknown user", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		_, err := uc.SetBalance(context.Background(), 99, "10.00")
		assert.True(t, errs.IsUserNotFoundError(err))
	})

	t.Run("Overwrite runs inside a unit of work with a locked read", func(t *testing.T) {
		clock := newStubClock()
		userRepo := newMemUserRepo()
		holdingRepo := &memHoldingRepo{}
		uow := &memUnitOfWork{userRepo: userRepo, holdingRepo: holdingRepo}
		uc := NewUserUseCase(userRepo, holdingRepo, uow, clock, nopLogger{})

		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		_, err = uc.SetBalance(context.Background(), user.ID, "250.75")
		require.NoError(t, err)
		assert.Equal(t, 1, uow.begins)
		assert.Equal(t, 1, uow.commits)
		assert.Equal(t, 0, uow.rollbacks)
		assert.Equal(t, 1, userRepo.forUpdateReads)
	})

	t.Run("Unknown user rolls the unit of work back", func(t *testing.T) {
		clock := newStubClock()
		userRepo := newMemUserRepo()
		holdingRepo := &memHoldingRepo{}
		uow := &memUnitOfWork{userRepo: userRepo, holdingRepo: holdingRepo}
		uc := NewUserUseCase(userRepo, holdingRepo, uow, clock, nopLogger{})

		_, err := uc.SetBalance(context.Background(), 99, "10.00")
		assert.True(t, errs.IsUserNotFoundError(err))
		assert.Equal(t, 1, uow.begins)
		assert.Equal(t, 0, uow.commits)
		assert.Equal(t, 1, uow.rollbacks)
	})
}

func TestListUsers(t *testing.T) {
	uc, _, _, _ := newTestUseCase()

	_, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
	require.NoError(t, err)
	_, err = uc.CreateUser(context.Background(), "Jane", "Doe", "jane", "secret", "50.00")
	require.NoError(t, err)

	users, err := uc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "jdoe", users[0].UserName)
	assert.Equal(t, "jane", users[1].UserName)
}

func TestListUserHoldings(t *testing.T) {
	t.Run("Returns the user's holdings ordered by symbol", func(t *testing.T) {
		uc, _, holdingRepo, clock := newTestUseCase()
		user, err := uc.CreateUser(context.Background(), "John", "Doe", "jdoe", "secret", "100.00")
		require.NoError(t, err)

		for _, symbol := range []string{"MSFT", "AAPL"} {
			h, err := entity.NewHolding(user.ID, symbol, symbol, decimal.NewFromInt(1), clock)
			require.NoError(t, err)
			require.NoError(t, holdingRepo.Create(context.Background(), h))
		}

		holdings, err := uc.ListUserHoldings(context.Background(), user.ID)
		require.NoError(t, err)
		require.Len(t, holdings, 2)
		assert.Equal(t, "AAPL", holdings[0].Symbol)
		assert.Equal(t, "MSFT", holdings[1].Symbol)
	})

	t.Run("Unknown user", func(t *testing.T) {
		uc, _, _, _ := newTestUseCase()
		_, err := uc.ListUserHoldings(context.Background(), 99)
		assert.True(t, errs.IsUserNotFoundError(err))
	})
}
