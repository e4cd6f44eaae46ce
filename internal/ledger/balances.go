package ledger

import (
	"sort"

	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
)

// MemberBalance is one member's net position in a group.
type MemberBalance struct {
	MemberID string
	// Balance is Paid - Owed. Positive = owed money, negative = owes money.
	Balance money.Money
	// Paid is the total of expenses this member paid for.
	Paid money.Money
	// Owed is the total of splits attributed to this member.
	Owed money.Money
}

// Balances is the aggregator output, ordered by MemberID.
type Balances []MemberBalance

// Map returns member ID -> balance.
func (b Balances) Map() map[string]money.Money {
	m := make(map[string]money.Money, len(b))
	for _, mb := range b {
		m[mb.MemberID] = mb.Balance
	}
	return m
}

// Total sums every balance. For balances computed from valid expenses it is
// always exactly zero.
func (b Balances) Total(currency string) money.Money {
	total := money.Zero(currency)
	for _, mb := range b {
		total = total.Add(mb.Balance)
	}
	return total
}

// ComputeBalances derives every member's net balance from a group's expenses.
//
// Algorithm:
//   - every current member starts at zero
//   - for each expense the payer is credited the total amount
//   - for each split the split's user is debited the amount owed
//
// The result covers every member, including zero balances, in member ID order.
// A payer or split user that is no longer in members still gets a row so the
// balances keep summing to zero. Runs in O(expenses + splits).
func ComputeBalances(currency string, members []string, expenses []models.Expense) Balances {
	zero := money.Zero(currency)
	byMember := make(map[string]*MemberBalance, len(members))
	get := func(id string) *MemberBalance {
		mb, ok := byMember[id]
		if !ok {
			mb = &MemberBalance{MemberID: id, Balance: zero, Paid: zero, Owed: zero}
			byMember[id] = mb
		}
		return mb
	}

	for _, id := range members {
		get(id)
	}

	for _, e := range expenses {
		payer := get(e.PayerID)
		payer.Paid = payer.Paid.Add(e.TotalAmount)
		payer.Balance = payer.Balance.Add(e.TotalAmount)

		for _, s := range e.Splits {
			owes := get(s.UserID)
			owes.Owed = owes.Owed.Add(s.AmountOwed)
			owes.Balance = owes.Balance.Sub(s.AmountOwed)
		}
	}

	out := make(Balances, 0, len(byMember))
	for _, mb := range byMember {
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}
