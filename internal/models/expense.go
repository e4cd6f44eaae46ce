package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/tripledger/internal/money"
)

// SplitType records how the splits of an expense were produced.
// It is a display tag only: validation and balances treat all types alike.
type SplitType string

const (
	SplitEvenly   SplitType = "EVENLY"
	SplitManually SplitType = "MANUALLY"
	// SplitItemized is a manual split derived from receipt line items.
	SplitItemized SplitType = "ITEMIZED"
)

// ParseSplitType accepts the full names and the single-letter codes
// ("E", "M", "I") used by mobile clients. Empty defaults to MANUALLY.
func ParseSplitType(s string) (SplitType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "E", string(SplitEvenly):
		return SplitEvenly, nil
	case "", "M", string(SplitManually):
		return SplitManually, nil
	case "I", string(SplitItemized):
		return SplitItemized, nil
	}
	return "", fmt.Errorf("unknown split type %q", s)
}

// Code returns the single-letter wire code.
func (t SplitType) Code() string {
	if t == "" {
		return "M"
	}
	return string(t)[:1]
}

// Expense is a single payment made by one member on behalf of the group.
// Expenses are created together with their Splits and never modified;
// deleting an expense deletes its splits.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// Description is free text ("Hotel booking").
	Description string

	// TotalAmount is what the payer paid, in the group's currency.
	TotalAmount money.Money

	// PayerID is the member who paid.
	PayerID string

	SplitType SplitType

	// Splits attribute TotalAmount to members. Their amounts always sum to
	// TotalAmount exactly.
	Splits []Split

	// CreatedBy is the user who recorded the expense, not necessarily the payer.
	CreatedBy string

	CreatedAt time.Time
}

// Split is the portion of one Expense owed by one member.
type Split struct {
	// ID is the unique identifier for the split (UUID format).
	ID string

	// ExpenseID is the expense this split belongs to.
	ExpenseID string

	// UserID is the member who owes AmountOwed.
	UserID string

	AmountOwed money.Money
}
