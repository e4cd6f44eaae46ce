package ledger

import (
	"sort"

	"github.com/mmynk/tripledger/internal/money"
)

// Transfer is one payment in a settlement plan: From pays To Amount.
type Transfer struct {
	From   string
	To     string
	Amount money.Money
}

// party is a creditor or debtor during planning; amount is always positive.
type party struct {
	id     string
	amount money.Money
}

// PlanSettlements turns balances into a list of transfers that, if all made,
// bring every balance to zero.
//
// The tolerance is one minor unit of currency (money.Epsilon). Members within
// it of zero count as settled. Creditors (balance above it) and debtors
// (below minus it) are each sorted by amount descending, ties by member ID. Two
// cursors then walk the lists from the largest creditor and the largest
// debtor: each step transfers min(credit, debt), and whichever side is used
// up, down to the tolerance, advances (both on an exact match). Only amounts
// above the tolerance are emitted. Every step exhausts at least one
// party, so the plan has at most len(creditors)+len(debtors)-1 transfers.
//
// This is a greedy heuristic and does not guarantee the minimum number of
// transfers. Balances of one minor unit or less are left unpaid, so a replayed
// plan can leave such residues behind.
func PlanSettlements(currency string, balances Balances) []Transfer {
	eps := money.Epsilon(currency)

	var creditors, debtors []party
	for _, mb := range balances {
		switch {
		case mb.Balance.GreaterThan(eps):
			creditors = append(creditors, party{id: mb.MemberID, amount: mb.Balance.Round()})
		case mb.Balance.Neg().GreaterThan(eps):
			debtors = append(debtors, party{id: mb.MemberID, amount: mb.Balance.Neg().Round()})
		}
	}
	sortParties(creditors)
	sortParties(debtors)

	var plan []Transfer
	i, j := 0, 0
	for i < len(creditors) && j < len(debtors) {
		creditor := &creditors[i]
		debtor := &debtors[j]

		amount := creditor.amount.Min(debtor.amount)
		if amount.GreaterThan(eps) {
			plan = append(plan, Transfer{From: debtor.id, To: creditor.id, Amount: amount})
		}

		creditor.amount = creditor.amount.Sub(amount)
		debtor.amount = debtor.amount.Sub(amount)

		if creditor.amount.LessOrEqual(eps) {
			i++
		}
		if debtor.amount.LessOrEqual(eps) {
			j++
		}
	}

	return plan
}

func sortParties(ps []party) {
	sort.Slice(ps, func(a, b int) bool {
		if c := ps[a].amount.Cmp(ps[b].amount); c != 0 {
			return c > 0
		}
		return ps[a].id < ps[b].id
	})
}

// Replay applies plan to balances and returns the resulting balances:
// each transfer raises the payer's balance and lowers the receiver's.
func Replay(currency string, balances Balances, plan []Transfer) map[string]money.Money {
	after := balances.Map()
	for _, t := range plan {
		from, ok := after[t.From]
		if !ok {
			from = money.Zero(currency)
		}
		to, ok := after[t.To]
		if !ok {
			to = money.Zero(currency)
		}
		after[t.From] = from.Add(t.Amount)
		after[t.To] = to.Sub(t.Amount)
	}
	return after
}
