package service

import (
	"context"
	"time"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
	"github.com/mmynk/tripledger/internal/storage"
	"github.com/mmynk/tripledger/pkg/api"
)

// directory resolves user IDs to users for display. IDs without a user keep
// an empty username.
type directory map[string]*models.User

func lookupUsers(ctx context.Context, users storage.UserStore, ids []string) (directory, error) {
	if len(ids) == 0 {
		return directory{}, nil
	}
	found, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return directory(found), nil
}

func (d directory) username(id string) string {
	if u, ok := d[id]; ok {
		return u.Username
	}
	return ""
}

func (d directory) user(id string) *api.User {
	if u, ok := d[id]; ok {
		return toAPIUser(u)
	}
	return &api.User{ID: id}
}

func toAPIUser(u *models.User) *api.User {
	return &api.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		CreatedAt:   u.CreatedAt,
	}
}

func toAPIGroup(g *models.Group, dir directory) *api.Group {
	members := make([]*api.User, len(g.Members))
	for i, id := range g.Members {
		members[i] = dir.user(id)
	}
	return &api.Group{
		ID:        g.ID,
		Name:      g.Name,
		Currency:  g.Currency,
		Members:   members,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt,
	}
}

func toAPIExpense(e *models.Expense, dir directory) *api.Expense {
	splits := make([]*api.Split, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = &api.Split{
			ID:         s.ID,
			UserOwedID: s.UserID,
			Username:   dir.username(s.UserID),
			AmountOwed: amount(s.AmountOwed),
		}
	}
	return &api.Expense{
		ID:            e.ID,
		GroupID:       e.GroupID,
		Description:   e.Description,
		TotalAmount:   amount(e.TotalAmount),
		Currency:      e.TotalAmount.Currency(),
		PayerID:       e.PayerID,
		PayerUsername: dir.username(e.PayerID),
		SplitType:     string(e.SplitType),
		Splits:        splits,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toAPIExpenses(expenses []models.Expense, dir directory) []*api.Expense {
	out := make([]*api.Expense, len(expenses))
	for i := range expenses {
		out[i] = toAPIExpense(&expenses[i], dir)
	}
	return out
}

// expenseUsers lists every payer and split user referenced by expenses.
func expenseUsers(expenses ...models.Expense) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, e := range expenses {
		add(e.PayerID)
		for _, s := range e.Splits {
			add(s.UserID)
		}
	}
	return ids
}

// amount renders m with exactly its currency's minor-unit digits.
func amount(m money.Money) api.Amount {
	return api.Amount(m.Round().StringFixed())
}

func parseWindow(op string, w api.Window) (storage.Window, error) {
	var out storage.Window
	var err error
	if w.From != "" {
		if out.From, err = time.Parse(time.RFC3339, w.From); err != nil {
			return out, ledger.Invalid(op, ledger.ReasonInvalidRequest, "from must be RFC 3339: %v", err)
		}
	}
	if w.To != "" {
		if out.To, err = time.Parse(time.RFC3339, w.To); err != nil {
			return out, ledger.Invalid(op, ledger.ReasonInvalidRequest, "to must be RFC 3339: %v", err)
		}
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return out, ledger.Invalid(op, ledger.ReasonInvalidRequest, "window ends before it starts")
	}
	return out, nil
}

// requireMember loads a group and checks that userID belongs to it.
func requireMember(ctx context.Context, store storage.Store, op, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, ledger.Invalid(op, ledger.ReasonInvalidRequest, "group_id required")
	}
	group, err := store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(userID) {
		return nil, ledger.Permission(op, "user %s is not a member of group %s", userID, groupID)
	}
	return group, nil
}
