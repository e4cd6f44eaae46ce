package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripledger/internal/ledger"
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
	"github.com/mmynk/tripledger/internal/storage"
)

// expenseColumns are shared by every expense read. Splits are LEFT JOINed so
// that one query returns expenses together with all of their splits.
const expenseColumns = `
	SELECT e.id, e.group_id, g.currency, e.description, e.total_amount, e.payer_id,
	       e.split_type, e.created_by, e.created_at,
	       s.id, s.user_id, s.amount_owed
	FROM expenses e
	JOIN groups g ON g.id = e.group_id
	LEFT JOIN splits s ON s.expense_id = e.id`

// CreateExpense validates the expense against the group's current members and
// writes it with all of its splits in one transaction.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := getGroup(ctx, tx, expense.GroupID)
	if err != nil {
		return err
	}

	// Amounts decoded from the wire carry no currency yet.
	if expense.TotalAmount.Currency() == "" {
		expense.TotalAmount = expense.TotalAmount.In(group.Currency)
	}
	for i := range expense.Splits {
		if expense.Splits[i].AmountOwed.Currency() == "" {
			expense.Splits[i].AmountOwed = expense.Splits[i].AmountOwed.In(group.Currency)
		}
	}

	if err := ledger.ValidateExpense(ledger.SubmissionFromExpense(expense, group.Currency), group.Members); err != nil {
		return err
	}

	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt.IsZero() {
		expense.CreatedAt = time.Now().UTC()
	}
	if expense.SplitType == "" {
		expense.SplitType = models.SplitManually
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, group_id, description, total_amount, payer_id, split_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		expense.ID, expense.GroupID, expense.Description, expense.TotalAmount.StringFixed(),
		expense.PayerID, string(expense.SplitType), expense.CreatedBy, expense.CreatedAt.UnixNano(),
	)
	if err != nil {
		return classify("insert expense", err)
	}

	// All splits go in as one statement: either every row lands or none does.
	args := make([]any, 0, 5*len(expense.Splits))
	for i := range expense.Splits {
		split := &expense.Splits[i]
		if split.ID == "" {
			split.ID = uuid.New().String()
		}
		split.ExpenseID = expense.ID
		args = append(args, split.ID, expense.ID, expense.GroupID, split.UserID, split.AmountOwed.StringFixed())
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO splits (id, expense_id, group_id, user_id, amount_owed) VALUES "+
			repeatRow("(?, ?, ?, ?, ?)", len(expense.Splits)),
		args...,
	)
	if err != nil {
		return classify("insert splits", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense with its splits.
func (s *SQLiteStore) GetExpense(ctx context.Context, expenseID string) (*models.Expense, error) {
	expenses, err := queryExpenses(ctx, s.db, expenseColumns+" WHERE e.id = ? ORDER BY s.rowid", expenseID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, ledger.NotFound("get expense", ledger.ReasonUnknownExpense, "expense %s not found", expenseID)
	}
	return &expenses[0], nil
}

// DeleteExpense removes an expense. Its splits are removed by cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, expenseID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n == 0 {
		return ledger.NotFound("delete expense", ledger.ReasonUnknownExpense, "expense %s not found", expenseID)
	}
	return nil
}

// ListExpensesByGroup returns the group's expenses with splits, oldest first.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string, window storage.Window) ([]models.Expense, error) {
	if err := groupExists(ctx, s.db, groupID); err != nil {
		return nil, err
	}
	return listExpenses(ctx, s.db, groupID, window)
}

// LedgerSnapshot reads members and expenses inside one transaction so the two
// reads agree with each other.
func (s *SQLiteStore) LedgerSnapshot(ctx context.Context, groupID string, window storage.Window) (*storage.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	group, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	expenses, err := listExpenses(ctx, tx, groupID, window)
	if err != nil {
		return nil, err
	}
	return &storage.Snapshot{Group: group, Expenses: expenses}, nil
}

func listExpenses(ctx context.Context, q queryer, groupID string, window storage.Window) ([]models.Expense, error) {
	var where strings.Builder
	where.WriteString(" WHERE e.group_id = ?")
	args := []any{groupID}
	if !window.From.IsZero() {
		where.WriteString(" AND e.created_at >= ?")
		args = append(args, window.From.UnixNano())
	}
	if !window.To.IsZero() {
		where.WriteString(" AND e.created_at < ?")
		args = append(args, window.To.UnixNano())
	}
	return queryExpenses(ctx, q, expenseColumns+where.String()+" ORDER BY e.created_at, e.id, s.rowid", args...)
}

// queryExpenses folds the joined expense/split rows into expenses. Rows for
// one expense are adjacent because every query orders by expense first.
func queryExpenses(ctx context.Context, q queryer, query string, args ...any) ([]models.Expense, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var (
			e                         models.Expense
			currency, total, split    string
			createdAt                 int64
			splitID, userID, owedText sql.NullString
		)
		if err := rows.Scan(
			&e.ID, &e.GroupID, &currency, &e.Description, &total, &e.PayerID,
			&split, &e.CreatedBy, &createdAt,
			&splitID, &userID, &owedText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if n := len(expenses); n == 0 || expenses[n-1].ID != e.ID {
			if e.TotalAmount, err = money.Parse(total, currency); err != nil {
				return nil, fmt.Errorf("expense %s: %w", e.ID, err)
			}
			e.SplitType = models.SplitType(split)
			e.CreatedAt = time.Unix(0, createdAt).UTC()
			expenses = append(expenses, e)
		}
		if !splitID.Valid {
			continue
		}

		owed, err := money.Parse(owedText.String, currency)
		if err != nil {
			return nil, fmt.Errorf("split %s: %w", splitID.String, err)
		}
		cur := &expenses[len(expenses)-1]
		cur.Splits = append(cur.Splits, models.Split{
			ID:         splitID.String,
			ExpenseID:  cur.ID,
			UserID:     userID.String,
			AmountOwed: owed,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}
