package receipt

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripledger/internal/money"
)

// Converter re-prices items in a target currency.
type Converter struct {
	rates RateSource
}

func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert returns items priced in target, each rounded to target's minor
// unit. Each distinct source currency is quoted once.
func (c *Converter) Convert(ctx context.Context, items []Item, target string) ([]Item, error) {
	target = strings.ToUpper(target)
	quoted := make(map[string]decimal.Decimal)

	out := make([]Item, len(items))
	for i, it := range items {
		from := it.Price.Currency()
		if from == "" || from == target {
			out[i] = Item{Name: it.Name, Price: it.Price.In(target).Round()}
			continue
		}

		rate, ok := quoted[from]
		if !ok {
			var err error
			if rate, err = c.rates.Rate(ctx, from, target); err != nil {
				return nil, err
			}
			quoted[from] = rate
		}
		out[i] = Item{Name: it.Name, Price: money.New(it.Price.Decimal().Mul(rate), target).Round()}
	}
	return out, nil
}
