// Package receipt turns receipt photos into priced line items and converts
// them between currencies. It never touches ledger state; every failure is a
// ledger.KindUpstream error.
package receipt

import (
	"context"

	"github.com/mmynk/tripledger/internal/money"
)

// Item is one parsed receipt line. Price carries the receipt's currency.
type Item struct {
	Name  string
	Price money.Money
}

// Parser extracts line items from a receipt image.
type Parser interface {
	Parse(ctx context.Context, image []byte, mimeType string) ([]Item, error)
}

// Total sums the items in currency. Items in another currency are an error.
func Total(items []Item, currency string) (money.Money, error) {
	prices := make([]money.Money, len(items))
	for i, it := range items {
		prices[i] = it.Price
	}
	return money.Sum(currency, prices...)
}
