package tcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	errs "github.com/amirhossein-jamali/trading-ledger/internal/domain/error"
	coreport "github.com/amirhossein-jamali/trading-ledger/internal/domain/port/core"
	tradeUseCase "github.com/amirhossein-jamali/trading-ledger/internal/domain/usecase/trade"
	userUseCase "github.com/amirhossein-jamali/trading-ledger/internal/domain/usecase/user"
)

// Command keywords of the line protocol
const (
	CmdAddUser       = "ADD_USER"
	CmdBuy           = "BUY"
	CmdSell          = "SELL"
	CmdList          = "LIST"
	CmdListUsers     = "LIST_USERS"
	CmdGetBalance    = "GET_BALANCE"
	CmdUpdateBalance = "UPDATE_BALANCE"
	CmdShutdown      = "SHUTDOWN"
)

// Dispatcher parses a received line into a command with typed arguments,
// invokes the matching use case and renders the response text. A bad line
// yields an ERROR response, never a dropped connection.
type Dispatcher struct {
	users  *userUseCase.UserUseCase
	engine *tradeUseCase.Engine
	logger coreport.Logger
}

// NewDispatcher creates a command dispatcher
func NewDispatcher(
	users *userUseCase.UserUseCase,
	engine *tradeUseCase.Engine,
	logger coreport.Logger,
) *Dispatcher {
	return &Dispatcher{
		users:  users,
		engine: engine,
		logger: logger,
	}
}

// Dispatch handles one protocol line and returns the response text.
// Responses are a single status line, optionally followed by data lines.
// The second return is true when a SHUTDOWN command was accepted; the
// caller delivers the response before acting on it so the peer always
// sees the acknowledgment.
func (d *Dispatcher) Dispatch(ctx context.Context, line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return errorResponse(fmt.Errorf("%w: empty command", errs.ErrInvalidInput)), false
	}

	command := strings.ToUpper(fields[0])
	args := fields[1:]

	d.logger.Debug("Dispatching command", map[string]any{
		"command": command,
		"args":    len(args),
	})

	switch command {
	case CmdAddUser:
		return d.handleAddUser(ctx, args), false
	case CmdBuy:
		return d.handleBuy(ctx, args), false
	case CmdSell:
		return d.handleSell(ctx, args), false
	case CmdList:
		return d.handleList(ctx, args), false
	case CmdListUsers:
		return d.handleListUsers(ctx, args), false
	case CmdGetBalance:
		return d.handleGetBalance(ctx, args), false
	case CmdUpdateBalance:
		return d.handleUpdateBalance(ctx, args), false
	case CmdShutdown:
		return d.handleShutdown(args)
	default:
		return errorResponse(fmt.Errorf("%w: unknown command %s", errs.ErrInvalidInput, command)), false
	}
}

// handleAddUser handles: ADD_USER <first> <last> <userName> <password> <balance>
func (d *Dispatcher) handleAddUser(ctx context.Context, args []string) string {
	if len(args) != 5 {
		return usageResponse("ADD_USER firstName lastName userName password balance")
	}

	user, err := d.users.CreateUser(ctx, args[0], args[1], args[2], args[3], args[4])
	if err != nil {
		return errorResponse(err)
	}

	return fmt.Sprintf("OK %d", user.ID)
}

// handleBuy handles: BUY <symbol> <shareName> <quantity> <price> <userId>
func (d *Dispatcher) handleBuy(ctx context.Context, args []string) string {
	if len(args) != 5 {
		return usageResponse("BUY symbol shareName quantity pricePerShare userId")
	}

	userID, err := parseUserID(args[4])
	if err != nil {
		return errorResponse(err)
	}

	result, err := d.engine.Buy(ctx, tradeUseCase.BuyRequest{
		UserID:    userID,
		Symbol:    args[0],
		ShareName: args[1],
		Quantity:  args[2],
		Price:     args[3],
	})
	if err != nil {
		return errorResponse(err)
	}

	// Resulting holding quantity and cash balance, in that order
	return fmt.Sprintf("OK %s %s", result.Quantity.String(), result.GetBalance())
}

// handleSell handles: SELL <symbol> <quantity> <price> <userId>
func (d *Dispatcher) handleSell(ctx context.Context, args []string) string {
	if len(args) != 4 {
		return usageResponse("SELL symbol quantity pricePerShare userId")
	}

	userID, err := parseUserID(args[3])
	if err != nil {
		return errorResponse(err)
	}

	result, err := d.engine.Sell(ctx, tradeUseCase.SellRequest{
		UserID:   userID,
		Symbol:   args[0],
		Quantity: args[1],
		Price:    args[2],
	})
	if err != nil {
		return errorResponse(err)
	}

	return fmt.Sprintf("OK %s %s", result.Quantity.String(), result.GetBalance())
}

// handleList handles: LIST
func (d *Dispatcher) handleList(ctx context.Context, args []string) string {
	if len(args) != 0 {
		return usageResponse("LIST")
	}

	holdings, err := d.users.ListHoldings(ctx)
	if err != nil {
		return errorResponse(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "OK %d", len(holdings))
	for _, h := range holdings {
		fmt.Fprintf(&b, "\n%d %s %s %s", h.UserID, h.Symbol, h.Name, h.Quantity.String())
	}
	return b.String()
}

// handleListUsers handles: LIST_USERS
func (d *Dispatcher) handleListUsers(ctx context.Context, args []string) string {
	if len(args) != 0 {
		return usageResponse("LIST_USERS")
	}

	users, err := d.users.ListUsers(ctx)
	if err != nil {
		return errorResponse(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "OK %d", len(users))
	for _, u := range users {
		fmt.Fprintf(&b, "\n%d %s %s %s %s", u.ID, u.UserName, u.FirstName, u.LastName, u.GetBalance())
	}
	return b.String()
}

// handleGetBalance handles: GET_BALANCE <userId>
func (d *Dispatcher) handleGetBalance(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usageResponse("GET_BALANCE userId")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return errorResponse(err)
	}

	balance, err := d.users.GetBalance(ctx, userID)
	if err != nil {
		return errorResponse(err)
	}

	return fmt.Sprintf("OK %s", balance)
}

// handleUpdateBalance handles: UPDATE_BALANCE <userId> <balance>
func (d *Dispatcher) handleUpdateBalance(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return usageResponse("UPDATE_BALANCE userId newBalance")
	}

	userID, err := parseUserID(args[0])
	if err != nil {
		return errorResponse(err)
	}

	balance, err := d.users.SetBalance(ctx, userID, args[1])
	if err != nil {
		return errorResponse(err)
	}

	return fmt.Sprintf("OK %s", balance)
}

// handleShutdown handles: SHUTDOWN
func (d *Dispatcher) handleShutdown(args []string) (string, bool) {
	if len(args) != 0 {
		return usageResponse("SHUTDOWN"), false
	}

	d.logger.Info("Shutdown requested over the wire", nil)
	return "OK shutting down", true
}

// parseUserID converts a textual user ID argument
func parseUserID(arg string) (uint64, error) {
	userID, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || userID == 0 {
		return 0, errs.ErrInvalidUserID
	}
	return userID, nil
}

// usageResponse renders the error line for a malformed command
func usageResponse(usage string) string {
	return fmt.Sprintf("ERROR invalid format, use: %s", usage)
}

// errorResponse renders the error line for a failed command.
// Storage internals are not leaked to the peer.
func errorResponse(err error) string {
	switch {
	case errs.IsTransactionFailedError(err):
		return "ERROR " + errs.ErrTransactionFailed.Error()
	case errs.IsUserLockedError(err):
		return "ERROR " + errs.ErrUserLocked.Error()
	default:
		return "ERROR " + err.Error()
	}
}
