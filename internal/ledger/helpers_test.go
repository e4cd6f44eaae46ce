package ledger

import (
	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
)

func usd(s string) money.Money { return money.MustParse(s, "USD") }

// expense builds a stored expense; owed alternates user, amount.
func expense(payer, total string, owed ...string) models.Expense {
	e := models.Expense{PayerID: payer, TotalAmount: usd(total)}
	for i := 0; i+1 < len(owed); i += 2 {
		e.Splits = append(e.Splits, models.Split{UserID: owed[i], AmountOwed: usd(owed[i+1])})
	}
	return e
}
