package service

import (
	"context"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripledger/internal/auth"
	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/middleware"
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
	"github.com/mmynk/tripledger/internal/storage"
	"github.com/mmynk/tripledger/pkg/api"
	"github.com/mmynk/tripledger/pkg/api/apiconnect"
)

var _ apiconnect.GroupServiceHandler = (*GroupService)(nil)

// GroupService implements the Connect GroupService
type GroupService struct {
	store           storage.Store
	users           storage.UserStore
	defaultCurrency string
	metrics         *middleware.Metrics
}

// NewGroupService creates a GroupService. Groups created without a currency
// use defaultCurrency. metrics may be nil.
func NewGroupService(store storage.Store, users storage.UserStore, defaultCurrency string, metrics *middleware.Metrics) *GroupService {
	return &GroupService{
		store:           store,
		users:           users,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		metrics:         metrics,
	}
}

// CreateGroup creates a new group with the caller as creator and member.
func (s *GroupService) CreateGroup(ctx context.Context, req *connect.Request[api.CreateGroupRequest]) (*connect.Response[api.CreateGroupResponse], error) {
	const op = "create group"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("CreateGroup request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.MemberIDs),
		"user_id", userID,
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, toConnectError(ledger.Invalid(op, ledger.ReasonInvalidRequest, "name required"))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Msg.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if !money.KnownCurrency(currency) {
		return nil, toConnectError(ledger.Invalid(op, ledger.ReasonInvalidRequest, "unknown currency %q", currency))
	}
	if err := s.users.RequireUsers(ctx, req.Msg.MemberIDs); err != nil {
		slog.Warn("CreateGroup rejected", "error", err)
		return nil, toConnectError(err)
	}

	group := &models.Group{
		Name:      name,
		Currency:  currency,
		Members:   req.Msg.MemberIDs,
		CreatedBy: userID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	dir, err := lookupUsers(ctx, s.users, group.Members)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Group created", "group_id", group.ID, "currency", group.Currency)
	return connect.NewResponse(&api.CreateGroupResponse{Group: toAPIGroup(group, dir)}), nil
}

// GetGroup returns a group with its members and expenses.
func (s *GroupService) GetGroup(ctx context.Context, req *connect.Request[api.GetGroupRequest]) (*connect.Response[api.GetGroupResponse], error) {
	const op = "get group"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("GetGroup request received", "group_id", req.Msg.GroupID)

	group, err := requireMember(ctx, s.store, op, req.Msg.GroupID, userID)
	if err != nil {
		slog.Warn("GetGroup failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	expenses, err := s.store.ListExpensesByGroup(ctx, group.ID, storage.Window{})
	if err != nil {
		slog.Error("GetGroup failed - could not list expenses", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	dir, err := lookupUsers(ctx, s.users, append(expenseUsers(expenses...), group.Members...))
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("GetGroup successful", "group_id", group.ID, "expenses_count", len(expenses))
	return connect.NewResponse(&api.GetGroupResponse{
		Group:    toAPIGroup(group, dir),
		Expenses: toAPIExpenses(expenses, dir),
	}), nil
}

// ListGroups returns the caller's groups, newest first.
func (s *GroupService) ListGroups(ctx context.Context, req *connect.Request[api.ListGroupsRequest]) (*connect.Response[api.ListGroupsResponse], error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("ListGroups request received", "user_id", userID)

	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		slog.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	var ids []string
	for _, g := range groups {
		ids = append(ids, g.Members...)
	}
	dir, err := lookupUsers(ctx, s.users, ids)
	if err != nil {
		return nil, toConnectError(err)
	}

	out := make([]*api.Group, len(groups))
	for i, g := range groups {
		out[i] = toAPIGroup(g, dir)
	}

	slog.Info("ListGroups successful", "count", len(groups))
	return connect.NewResponse(&api.ListGroupsResponse{Groups: out}), nil
}

// AddMembers adds users to a group by ID or username. Only members may add.
func (s *GroupService) AddMembers(ctx context.Context, req *connect.Request[api.AddMembersRequest]) (*connect.Response[api.AddMembersResponse], error) {
	const op = "add members"
	userID, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	slog.Info("AddMembers request received",
		"group_id", req.Msg.GroupID,
		"user_ids", len(req.Msg.UserIDs),
		"usernames", len(req.Msg.Usernames),
	)

	group, err := requireMember(ctx, s.store, op, req.Msg.GroupID, userID)
	if err != nil {
		return nil, toConnectError(err)
	}

	ids := append([]string(nil), req.Msg.UserIDs...)
	for _, name := range req.Msg.Usernames {
		u, err := s.users.GetUserByUsername(ctx, auth.NormalizeUsername(name))
		if err != nil {
			return nil, toConnectError(err)
		}
		if u == nil {
			return nil, toConnectError(ledger.NotFound(op, ledger.ReasonUnknownUser, "no user named %q", name))
		}
		ids = append(ids, u.ID)
	}
	if len(ids) == 0 {
		return nil, toConnectError(ledger.Invalid(op, ledger.ReasonInvalidRequest, "user_ids or usernames required"))
	}
	if err := s.users.RequireUsers(ctx, ids); err != nil {
		return nil, toConnectError(err)
	}

	if err := s.store.AddGroupMembers(ctx, group.ID, ids); err != nil {
		slog.Error("AddMembers failed", "group_id", group.ID, "error", err)
		return nil, toConnectError(err)
	}

	group, err = s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	dir, err := lookupUsers(ctx, s.users, group.Members)
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Members added", "group_id", group.ID, "members_count", len(group.Members))
	return connect.NewResponse(&api.AddMembersResponse{Group: toAPIGroup(group, dir)}), nil
}

// GetBalances computes every member's net balance from the group's expenses.
func (s *GroupService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	const op = "get balances"
	slog.Info("GetBalances request received", "group_id", req.Msg.GroupID)

	snap, balances, dir, err := s.balances(ctx, op, req.Msg.GroupID, req.Msg.Window)
	if err != nil {
		slog.Warn("GetBalances failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Balance, len(balances))
	for i, mb := range balances {
		out[i] = &api.Balance{
			MemberID: mb.MemberID,
			Username: dir.username(mb.MemberID),
			Balance:  amount(mb.Balance),
			Paid:     amount(mb.Paid),
			Owed:     amount(mb.Owed),
		}
	}

	slog.Info("GetBalances successful",
		"group_id", snap.Group.ID,
		"expenses_count", len(snap.Expenses),
		"members_count", len(balances),
	)
	return connect.NewResponse(&api.GetBalancesResponse{
		GroupID:  snap.Group.ID,
		Currency: snap.Group.Currency,
		Balances: out,
	}), nil
}

// GetSettlements plans the transfers that settle the group.
func (s *GroupService) GetSettlements(ctx context.Context, req *connect.Request[api.GetSettlementsRequest]) (*connect.Response[api.GetSettlementsResponse], error) {
	const op = "get settlements"
	slog.Info("GetSettlements request received", "group_id", req.Msg.GroupID)

	snap, balances, dir, err := s.balances(ctx, op, req.Msg.GroupID, req.Msg.Window)
	if err != nil {
		slog.Warn("GetSettlements failed", "group_id", req.Msg.GroupID, "error", err)
		return nil, toConnectError(err)
	}

	plan := ledger.PlanSettlements(snap.Group.Currency, balances)
	s.metrics.SettlementPlanned(len(plan))

	out := make([]*api.Settlement, len(plan))
	for i, t := range plan {
		out[i] = &api.Settlement{
			From:         t.From,
			FromUsername: dir.username(t.From),
			To:           t.To,
			ToUsername:   dir.username(t.To),
			Amount:       amount(t.Amount),
		}
	}

	slog.Info("GetSettlements successful", "group_id", snap.Group.ID, "transfers", len(plan))
	return connect.NewResponse(&api.GetSettlementsResponse{
		GroupID:     snap.Group.ID,
		Currency:    snap.Group.Currency,
		Settlements: out,
	}), nil
}

// balances reads one consistent snapshot of the group and aggregates it.
func (s *GroupService) balances(ctx context.Context, op, groupID string, w api.Window) (*storage.Snapshot, ledger.Balances, directory, error) {
	userID, err := actor(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	if groupID == "" {
		return nil, nil, nil, ledger.Invalid(op, ledger.ReasonInvalidRequest, "group_id required")
	}
	window, err := parseWindow(op, w)
	if err != nil {
		return nil, nil, nil, err
	}

	snap, err := s.store.LedgerSnapshot(ctx, groupID, window)
	if err != nil {
		return nil, nil, nil, err
	}
	if !snap.Group.HasMember(userID) {
		return nil, nil, nil, ledger.Permission(op, "user %s is not a member of group %s", userID, groupID)
	}

	balances := ledger.ComputeBalances(snap.Group.Currency, snap.Group.Members, snap.Expenses)
	ids := make([]string, len(balances))
	for i, mb := range balances {
		ids[i] = mb.MemberID
	}
	dir, err := lookupUsers(ctx, s.users, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	return snap, balances, dir, nil
}
