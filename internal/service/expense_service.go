package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/middleware"
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
	"github.com/mmynk/tripledger/internal/storage"
	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
)

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// ExpenseService records and reads group expenses.
type ExpenseService struct {
	store   storage.Store
	users   storage.UserStore
	metrics *middleware.Metrics
}

// NewExpenseService creates an ExpenseService. metrics may be nil.
func NewExpenseService(store storage.Store, users storage.UserStore, metrics *middleware.Metrics) *ExpenseService {
	return &ExpenseService{store: store, users: users, metrics: metrics}
}

// CreateExpense validates and stores an expense with its splits. Nothing is
// written unless every split is accepted.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	const op = "create expense"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateExpense request received",
		"group_id", req.Msg.GroupID,
		"total_amount", req.Msg.TotalAmount.String(),
		"split_type", req.Msg.SplitType,
		"splits_count", len(req.Msg.Splits),
		"items_count", len(req.Msg.Items),
	)

	expense, err := s.buildExpense(ctx, op, userID, req.Msg)
	if err != nil {
		s.rejected(req.Msg.GroupID, err)
		return nil, toConnectError(err)
	}
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		s.rejected(req.Msg.GroupID, err)
		return nil, toConnectError(err)
	}
	s.metrics.ExpenseCreated()

	dir, err := lookupUsers(ctx, s.users, expenseUsers(*expense))
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Expense created",
		"expense_id", expense.ID,
		"group_id", expense.GroupID,
		"total_amount", expense.TotalAmount.String(),
	)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: toAPIExpense(expense, dir)}), nil
}

func (s *ExpenseService) rejected(groupID string, err error) {
	if ledger.IsKind(err, ledger.KindValidation) {
		reason := string(ledger.ReasonOf(err))
		s.metrics.ExpenseRejected(reason)
		slog.Warn("CreateExpense rejected", "group_id", groupID, "reason", reason, "error", err)
		return
	}
	slog.Error("CreateExpense failed", "group_id", groupID, "error", err)
}

// buildExpense turns a request into an expense ready for the store. It
// resolves the payer, computes EVENLY and ITEMIZED amounts and checks that
// every referenced user exists. Membership is checked before any amount is
// parsed; the store validates again inside its transaction.
func (s *ExpenseService) buildExpense(ctx context.Context, op, userID string, msg *api.CreateExpenseRequest) (*models.Expense, error) {
	group, err := requireMember(ctx, s.store, op, msg.GroupID, userID)
	if err != nil {
		return nil, err
	}
	splitType, err := models.ParseSplitType(msg.SplitType)
	if err != nil {
		return nil, ledger.Invalid(op, ledger.ReasonInvalidRequest, "%v", err)
	}
	payer := msg.PayerID
	if payer == "" {
		payer = userID
	}
	users := partyIDs(splitType, msg, group.Members)

	// Members are registered by construction; only outsiders can be unknown.
	var outsiders []string
	for _, id := range append([]string{payer}, users...) {
		if !group.HasMember(id) {
			outsiders = append(outsiders, id)
		}
	}
	if err := s.users.RequireUsers(ctx, outsiders); err != nil {
		return nil, err
	}
	if err := ledger.ValidateParties(group.ID, payer, users, group.Members); err != nil {
		return nil, err
	}

	total, err := parseAmount(op, "total_amount", msg.TotalAmount, group.Currency)
	if err != nil {
		return nil, err
	}
	var lines []ledger.SplitLine
	switch {
	case splitType == models.SplitItemized && len(msg.Items) > 0:
		lines, err = itemizedLines(op, msg.Items, total, group.Currency)
	case splitType == models.SplitEvenly && amountsEmpty(msg.Splits):
		lines = ledger.SplitEvenly(total, users)
	default:
		lines, err = manualLines(op, msg.Splits, group.Currency)
	}
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		GroupID:     group.ID,
		Description: strings.TrimSpace(msg.Description),
		TotalAmount: total,
		PayerID:     payer,
		SplitType:   splitType,
		CreatedBy:   userID,
	}
	for _, l := range lines {
		expense.Splits = append(expense.Splits, models.Split{UserID: l.UserID, AmountOwed: l.Amount})
	}
	return expense, nil
}

func parseAmount(op, field string, a api.Amount, currency string) (money.Money, error) {
	if strings.TrimSpace(a.String()) == "" {
		return money.Money{}, ledger.Invalid(op, ledger.ReasonInvalidAmount, "%s required", field)
	}
	m, err := money.Parse(a.String(), currency)
	if err != nil {
		return money.Money{}, ledger.Invalid(op, ledger.ReasonInvalidAmount, "%s: %v", field, err)
	}
	return m, nil
}

func amountsEmpty(splits []*api.Split) bool {
	for _, sp := range splits {
		if strings.TrimSpace(sp.AmountOwed.String()) != "" {
			return false
		}
	}
	return true
}

func manualLines(op string, splits []*api.Split, currency string) ([]ledger.SplitLine, error) {
	lines := make([]ledger.SplitLine, len(splits))
	for i, sp := range splits {
		m, err := parseAmount(op, "amount_owed", sp.AmountOwed, currency)
		if err != nil {
			return nil, err
		}
		lines[i] = ledger.SplitLine{UserID: sp.UserOwedID, Amount: m}
	}
	return lines, nil
}

func itemizedLines(op string, items []*api.Item, total money.Money, currency string) ([]ledger.SplitLine, error) {
	parsed := make([]ledger.Item, len(items))
	for i, it := range items {
		m, err := parseAmount(op, "item amount", it.Amount, currency)
		if err != nil {
			return nil, err
		}
		parsed[i] = ledger.Item{Description: it.Description, Amount: m, AssignedTo: it.AssignedTo}
	}
	lines, err := ledger.SplitItemized(parsed, total)
	if err != nil {
		return nil, ledger.Invalid(op, ledger.ReasonInvalidRequest, "%v", err)
	}
	return lines, nil
}

// partyIDs lists the users a request splits the expense between, in request
// order: item assignees for ITEMIZED, every member for an EVENLY request
// without splits, the split lines otherwise.
func partyIDs(splitType models.SplitType, msg *api.CreateExpenseRequest, members []string) []string {
	switch {
	case splitType == models.SplitItemized && len(msg.Items) > 0:
		seen := make(map[string]bool)
		var ids []string
		for _, it := range msg.Items {
			for _, id := range it.AssignedTo {
				if !seen[id] {
					seen[id] = true
					ids = append(ids, id)
				}
			}
		}
		return ids
	case splitType == models.SplitEvenly && len(msg.Splits) == 0:
		return members
	}
	ids := make([]string, len(msg.Splits))
	for i, sp := range msg.Splits {
		ids[i] = sp.UserOwedID
	}
	return ids
}

// GetExpense returns one expense. The caller must belong to its group.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	const op = "get expense"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.memberExpense(ctx, op, req.Msg.ExpenseID, userID)
	if err != nil {
		slog.Warn("GetExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}

	dir, err := lookupUsers(ctx, s.users, expenseUsers(*expense))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: toAPIExpense(expense, dir)}), nil
}

// DeleteExpense removes an expense and its splits.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	const op = "delete expense"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("DeleteExpense request received", "expense_id", req.Msg.ExpenseID)

	expense, err := s.memberExpense(ctx, op, req.Msg.ExpenseID, userID)
	if err != nil {
		slog.Warn("DeleteExpense failed", "expense_id", req.Msg.ExpenseID, "error", err)
		return nil, toConnectError(err)
	}
	if err := s.store.DeleteExpense(ctx, expense.ID); err != nil {
		slog.Error("DeleteExpense failed", "expense_id", expense.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Expense deleted", "expense_id", expense.ID, "group_id", expense.GroupID)
	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// ListExpenses returns a group's expenses oldest first, optionally windowed.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	const op = "list expenses"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListExpenses request received", "group_id", req.Msg.GroupID)

	window, err := parseWindow(op, req.Msg.Window)
	if err != nil {
		return nil, toConnectError(err)
	}
	group, err := requireMember(ctx, s.store, op, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID, window)
	if err != nil {
		slog.Error("ListExpenses failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}
	dir, err := lookupUsers(ctx, s.users, expenseUsers(expenses...))
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("ListExpenses successful", "group_id", group.ID, "count", len(expenses))
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: toAPIExpenses(expenses, dir)}), nil
}

func (s *ExpenseService) memberExpense(ctx context.Context, op, expenseID, userID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, ledger.Invalid(op, ledger.ReasonInvalidRequest, "expense_id required")
	}
	expense, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.store, op, expense.GroupID, userID); err != nil {
		return nil, err
	}
	return expense, nil
}
