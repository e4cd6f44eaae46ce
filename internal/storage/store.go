// Package storage provides abstractions for persistent ledger storage.
package storage

import (
	"context"
	"time"

	"github.com/mmynk/tripledger/internal/models"
)

// Window bounds expense reads by creation time. Zero fields are unbounded.
// From is inclusive and To is exclusive.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

// Snapshot is a group's members and expenses read at one point in time.
type Snapshot struct {
	Group    *models.Group
	Expenses []models.Expense
}

// Store defines the ledger storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Errors are *ledger.Error values where they can be classified:
// KindNotFound for unknown groups and expenses, KindConflict for duplicates,
// KindValidation when CreateExpense rejects a submission.
type Store interface {
	// CreateGroup persists a new group with its initial members.
	// group.ID and group.CreatedAt are populated by the store.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group and its members.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroupsForUser returns every group userID is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// AddGroupMembers adds members to a group. Existing members are ignored.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// CreateExpense validates the expense against the group's current members
	// and persists it with all of its splits atomically. On any failure
	// nothing is written. expense.ID, CreatedAt and split IDs are populated.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves an expense with its splits.
	GetExpense(ctx context.Context, expenseID string) (*models.Expense, error)

	// DeleteExpense removes an expense and its splits.
	DeleteExpense(ctx context.Context, expenseID string) error

	// ListExpensesByGroup returns a group's expenses with their splits,
	// oldest first, in a single bulk read.
	ListExpensesByGroup(ctx context.Context, groupID string, window Window) ([]models.Expense, error)

	// LedgerSnapshot reads a group's members and expenses in one consistent read.
	LedgerSnapshot(ctx context.Context, groupID string, window Window) (*Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}

// UserStore holds registered users.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// GetUsersByIDs returns the users that exist, keyed by ID.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	// SearchUsers returns up to limit users whose username starts with prefix.
	SearchUsers(ctx context.Context, prefix string, limit int) ([]*models.User, error)
	// RequireUsers fails with KindNotFound unless every id is registered.
	RequireUsers(ctx context.Context, ids []string) error
}
