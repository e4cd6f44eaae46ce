// Package money provides an exact, serializable money value used by the ledger.
//
// Amounts are decimal values in the currency's major unit (60.00 USD, not 6000
// cents). Currency metadata such as the number of minor-unit digits comes from
// github.com/Rhymond/go-money, arithmetic from github.com/shopspring/decimal.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Money is an amount in a single currency. The zero value is a currency-less
// zero and adopts the currency of whatever it is added to.
type Money struct {
	amount decimal.Decimal
	cur    string
}

// New returns amount expressed in currency.
func New(amount decimal.Decimal, currency string) Money {
	return Money{amount: amount, cur: strings.ToUpper(currency)}
}

// Zero returns a zero amount in currency.
func Zero(currency string) Money {
	return New(decimal.Zero, currency)
}

// FromMinor builds a Money from an integer count of minor units (cents for USD).
func FromMinor(units int64, currency string) Money {
	return New(decimal.New(units, -int32(Fraction(currency))), currency)
}

// maxDigits bounds each of the integer and fractional parts of a parsed amount.
const maxDigits = 30

// Parse reads a plain decimal string such as "90.00" or "-10.5". Exponent
// forms like "1e3" are rejected.
func Parse(s, currency string) (Money, error) {
	d, err := parseDecimal(strings.TrimSpace(s))
	if err != nil {
		return Money{}, err
	}
	return New(d, currency), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q: exponent notation not allowed", ErrInvalidAmount, s)
	}
	whole, frac, _ := strings.Cut(strings.TrimLeft(s, "+-"), ".")
	if len(whole) > maxDigits || len(frac) > maxDigits {
		return decimal.Zero, fmt.Errorf("%w: %q: more than %d digits", ErrInvalidAmount, s, maxDigits)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// MustParse is Parse for literals in tests and fixtures.
func MustParse(s, currency string) Money {
	m, err := Parse(s, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// KnownCurrency reports whether code is an ISO-4217 currency known to go-money.
func KnownCurrency(code string) bool {
	return gomoney.GetCurrency(strings.ToUpper(code)) != nil
}

// Fraction returns the number of minor-unit digits for currency.
// Unknown currencies default to two digits.
func Fraction(currency string) int {
	if c := gomoney.GetCurrency(strings.ToUpper(currency)); c != nil {
		return c.Fraction
	}
	return 2
}

// Epsilon returns one minor unit of currency, the smallest representable step.
func Epsilon(currency string) Money {
	return FromMinor(1, currency)
}

func (m Money) Currency() string         { return m.cur }
func (m Money) Decimal() decimal.Decimal { return m.amount }
func (m Money) IsZero() bool             { return m.amount.IsZero() }
func (m Money) IsPositive() bool         { return m.amount.IsPositive() }
func (m Money) IsNegative() bool         { return m.amount.IsNegative() }
func (m Money) Neg() Money               { return Money{amount: m.amount.Neg(), cur: m.cur} }
func (m Money) Abs() Money               { return Money{amount: m.amount.Abs(), cur: m.cur} }

// Add returns m+n. It panics on a currency mismatch; use AddChecked when the
// operands come from untrusted input.
func (m Money) Add(n Money) Money {
	r, err := m.AddChecked(n)
	if err != nil {
		panic(err)
	}
	return r
}

// Sub returns m-n with the same panic rule as Add.
func (m Money) Sub(n Money) Money {
	return m.Add(n.Neg())
}

// AddChecked returns m+n or ErrCurrencyMismatch.
func (m Money) AddChecked(n Money) (Money, error) {
	cur, err := common(m, n)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(n.amount), cur: cur}, nil
}

// Cmp compares amounts, ignoring currency.
func (m Money) Cmp(n Money) int           { return m.amount.Cmp(n.amount) }
func (m Money) GreaterThan(n Money) bool  { return m.amount.GreaterThan(n.amount) }
func (m Money) LessThan(n Money) bool     { return m.amount.LessThan(n.amount) }
func (m Money) LessOrEqual(n Money) bool  { return m.amount.LessThanOrEqual(n.amount) }
func (m Money) Equal(n Money) bool        { return m.amount.Equal(n.amount) && m.cur == n.cur }
func (m Money) EqualAmount(n Money) bool  { return m.amount.Equal(n.amount) }
func (m Money) Min(n Money) Money {
	if n.amount.LessThan(m.amount) {
		return n
	}
	return m
}

// Round rounds half away from zero to the currency's minor unit.
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(int32(Fraction(m.cur))), cur: m.cur}
}

// IsMinorUnitPrecise reports whether m has no digits finer than one minor unit.
func (m Money) IsMinorUnitPrecise() bool {
	return m.amount.Equal(m.amount.Round(int32(Fraction(m.cur))))
}

// MinorUnits returns the amount as an integer count of minor units, rounded.
func (m Money) MinorUnits() int64 {
	return m.amount.Shift(int32(Fraction(m.cur))).Round(0).IntPart()
}

// StringFixed formats the amount with exactly the currency's minor-unit digits,
// "60.00" for USD. This is the transport representation.
func (m Money) StringFixed() string {
	return m.amount.StringFixed(int32(Fraction(m.cur)))
}

// String implements fmt.Stringer.
func (m Money) String() string {
	if m.cur == "" {
		return m.StringFixed()
	}
	return m.StringFixed() + " " + m.cur
}

// Display formats m with the currency's symbol and separators, "$60.00".
func (m Money) Display() string {
	c := gomoney.GetCurrency(m.cur)
	if c == nil {
		return m.String()
	}
	return c.Formatter().Format(m.MinorUnits())
}

// MarshalJSON encodes the amount as a fixed-precision string so that no
// floating point value ever reaches the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.StringFixed())
}

// UnmarshalJSON accepts a decimal string or a bare JSON number. The currency is
// left empty and must be attached by the caller with In.
func (m *Money) UnmarshalJSON(b []byte) error {
	d, err := parseDecimal(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	m.amount = d
	return nil
}

// In returns m tagged with currency, keeping the amount.
func (m Money) In(currency string) Money {
	return New(m.amount, currency)
}

// Sum adds every amount in ms; the result has currency when ms is empty.
func Sum(currency string, ms ...Money) (Money, error) {
	total := Zero(currency)
	for _, m := range ms {
		var err error
		if total, err = total.AddChecked(m); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// the empty currency is weak and adopts the other operand's currency.
func common(a, b Money) (string, error) {
	switch {
	case a.cur == "":
		return b.cur, nil
	case b.cur == "":
		return a.cur, nil
	case a.cur != b.cur:
		return "", fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, a.cur, b.cur)
	}
	return a.cur, nil
}
