package ledger

import (
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
)

// SplitLine is one requested (member, amount owed) pair.
type SplitLine struct {
	UserID string
	Amount money.Money
}

// Submission is an expense as submitted, before it is stored.
type Submission struct {
	GroupID string
	// Currency is the group's currency; all amounts must use it.
	Currency string
	PayerID  string
	Total    money.Money
	Splits   []SplitLine
}

// SubmissionFromExpense builds the validator input for e.
func SubmissionFromExpense(e *models.Expense, currency string) Submission {
	lines := make([]SplitLine, len(e.Splits))
	for i, s := range e.Splits {
		lines[i] = SplitLine{UserID: s.UserID, Amount: s.AmountOwed}
	}
	return Submission{
		GroupID:  e.GroupID,
		Currency: currency,
		PayerID:  e.PayerID,
		Total:    e.TotalAmount,
		Splits:   lines,
	}
}

// ValidateExpense checks a submission against the group's current members.
// Checks run in a fixed order and the first failure is returned as a
// KindValidation *Error whose Reason names the violated rule:
//
//	InvalidPayer        payer is not a member
//	NoSplits            the split list is empty
//	DuplicateSplitUser  a user appears twice in the split list
//	InvalidSplitMember  a split user is not a member
//	InvalidAmount       negative amount, wrong currency or sub-minor-unit digits
//	SplitSumMismatch    splits do not sum exactly to the total
func ValidateExpense(sub Submission, members []string) error {
	users := make([]string, len(sub.Splits))
	for i, line := range sub.Splits {
		users[i] = line.UserID
	}
	if err := ValidateParties(sub.GroupID, sub.PayerID, users, members); err != nil {
		return err
	}

	if err := checkAmount("total_amount", sub.Total, sub.Currency); err != nil {
		return err
	}
	sum := money.Zero(sub.Currency)
	for _, line := range sub.Splits {
		if err := checkAmount("amount_owed for "+line.UserID, line.Amount, sub.Currency); err != nil {
			return err
		}
		sum = sum.Add(line.Amount)
	}

	// Both sides are minor-unit precise here, so equality is exact.
	if !sum.EqualAmount(sub.Total) {
		return validationError(ReasonSplitSumMismatch, "splits sum to %s but total_amount is %s",
			sum.StringFixed(), sub.Total.StringFixed())
	}

	return nil
}

func checkAmount(field string, m money.Money, currency string) *Error {
	if m.Currency() != currency {
		return validationError(ReasonInvalidAmount, "%s is in %q, group currency is %s", field, m.Currency(), currency)
	}
	if m.IsNegative() {
		return validationError(ReasonInvalidAmount, "%s must not be negative, got %s", field, m.StringFixed())
	}
	if !m.IsMinorUnitPrecise() {
		return validationError(ReasonInvalidAmount, "%s has more precision than %s allows: %s", field, currency, m.Decimal().String())
	}
	return nil
}

// ValidateParties runs the membership checks of ValidateExpense, in the same
// order, on the payer and split users alone. It lets callers report a
// membership failure before they parse any amounts.
func ValidateParties(groupID, payerID string, users, members []string) error {
	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m] = true
	}

	if payerID == "" || !memberSet[payerID] {
		return validationError(ReasonInvalidPayer, "payer %q is not a member of group %s", payerID, groupID)
	}

	if len(users) == 0 {
		return validationError(ReasonNoSplits, "expense must have at least one split")
	}

	seen := make(map[string]bool, len(users))
	for _, id := range users {
		if seen[id] {
			return validationError(ReasonDuplicateSplitUser, "user %q appears more than once in splits", id)
		}
		seen[id] = true
	}

	for _, id := range users {
		if !memberSet[id] {
			return validationError(ReasonInvalidSplitMember, "split user %q is not a member of group %s", id, groupID)
		}
	}
	return nil
}
