package ledger

import (
	"fmt"
	"sort"

	"github.com/mmynk/tripledger/internal/money"
)

// SplitEvenly divides total among users so that the shares sum exactly to
// total. Leftover minor units go one each to the first users in order:
// 100.00 / 3 = 33.34, 33.33, 33.33.
func SplitEvenly(total money.Money, users []string) []SplitLine {
	if len(users) == 0 {
		return nil
	}
	cur := total.Currency()
	units := total.MinorUnits()
	n := int64(len(users))
	base, rem := units/n, units%n

	lines := make([]SplitLine, len(users))
	for i, u := range users {
		share := base
		if int64(i) < rem {
			share++
		}
		lines[i] = SplitLine{UserID: u, Amount: money.FromMinor(share, cur)}
	}
	return lines
}

// Item is a receipt line item assigned to one or more members.
type Item struct {
	Description string
	Amount      money.Money
	AssignedTo  []string
}

// SplitItemized computes each member's share of an itemized bill.
//
// Each item is split evenly among its assignees. The difference between total
// and the items' subtotal (tax, tip, fees, or a negative discount) is then
// allocated proportionally to each member's subtotal:
//
//	share = subtotal_i + extra × subtotal_i / subtotal
//
// Proportional shares are floored to the minor unit and the leftover units go
// to the largest remainders, so the result always sums exactly to total.
// Members are returned in order of first assignment.
func SplitItemized(items []Item, total money.Money) ([]SplitLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("itemized split needs at least one item")
	}
	cur := total.Currency()

	var order []string
	subtotals := make(map[string]int64)
	var subtotal int64
	for _, item := range items {
		if len(item.AssignedTo) == 0 {
			return nil, fmt.Errorf("item %q is not assigned to anyone", item.Description)
		}
		if item.Amount.IsNegative() {
			return nil, fmt.Errorf("item %q has a negative amount", item.Description)
		}
		for _, share := range SplitEvenly(item.Amount.In(cur), item.AssignedTo) {
			if _, ok := subtotals[share.UserID]; !ok {
				order = append(order, share.UserID)
			}
			subtotals[share.UserID] += share.Amount.MinorUnits()
		}
		subtotal += item.Amount.In(cur).MinorUnits()
	}
	if subtotal == 0 {
		return nil, fmt.Errorf("subtotal cannot be zero")
	}

	extra := total.MinorUnits() - subtotal

	type alloc struct {
		user      string
		units     int64
		remainder int64
	}
	allocs := make([]alloc, len(order))
	var allocated int64
	for i, u := range order {
		num := extra * subtotals[u]
		q := floorDiv(num, subtotal)
		allocs[i] = alloc{user: u, units: subtotals[u] + q, remainder: num - q*subtotal}
		allocated += q
	}

	// 0 <= leftover < len(order) because every floor loses less than one unit.
	leftover := extra - allocated
	byRemainder := make([]int, len(allocs))
	for i := range byRemainder {
		byRemainder[i] = i
	}
	sort.SliceStable(byRemainder, func(a, b int) bool {
		return allocs[byRemainder[a]].remainder > allocs[byRemainder[b]].remainder
	})
	for k := int64(0); k < leftover; k++ {
		allocs[byRemainder[k]].units++
	}

	lines := make([]SplitLine, len(allocs))
	for i, a := range allocs {
		lines[i] = SplitLine{UserID: a.user, Amount: money.FromMinor(a.units, cur)}
	}
	return lines, nil
}

// floorDiv is integer division rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
