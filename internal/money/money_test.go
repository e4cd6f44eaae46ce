package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "90", want: "90.00"},
		{in: "90.5", want: "90.50"},
		{in: " 0.01 ", want: "0.01"},
		{in: "-10.00", want: "-10.00"},
		{in: "", wantErr: true},
		{in: "ten", wantErr: true},
		{in: "1e3", wantErr: true},
		{in: "1E-2", wantErr: true},
		{in: "1e10000000", wantErr: true},
		{in: "123456789012345678901234567890", want: "123456789012345678901234567890.00"},
		{in: "1234567890123456789012345678901", wantErr: true},
		{in: "123456789012345678901234567890.25", want: "123456789012345678901234567890.25"},
		{in: "0.0000000000000000000000000000001", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := Parse(tt.in, "USD")
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.StringFixed())
			assert.Equal(t, "USD", m.Currency())
		})
	}
}

func TestArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 drifts in float64; it must not here.
	a := MustParse("0.10", "USD")
	b := MustParse("0.20", "USD")
	assert.True(t, a.Add(b).Equal(MustParse("0.30", "USD")))

	total := Zero("USD")
	for i := 0; i < 1000; i++ {
		total = total.Add(MustParse("0.01", "USD"))
	}
	assert.Equal(t, "10.00", total.StringFixed())
	assert.Equal(t, int64(1000), total.MinorUnits())
}

func TestCurrencyMismatch(t *testing.T) {
	_, err := MustParse("1", "USD").AddChecked(MustParse("1", "EUR"))
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	assert.Panics(t, func() { MustParse("1", "USD").Add(MustParse("1", "EUR")) })

	// the zero value adopts the other currency
	got, err := Money{}.AddChecked(MustParse("2.50", "EUR"))
	require.NoError(t, err)
	assert.Equal(t, "EUR", got.Currency())
}

func TestEpsilonAndFraction(t *testing.T) {
	assert.Equal(t, 2, Fraction("USD"))
	assert.Equal(t, 0, Fraction("JPY"))
	assert.Equal(t, 2, Fraction("not-a-currency"))

	assert.Equal(t, "0.01", Epsilon("USD").StringFixed())
	assert.Equal(t, "1", Epsilon("JPY").StringFixed())
	assert.True(t, KnownCurrency("eur"))
	assert.False(t, KnownCurrency("XXXX"))
}

func TestMinorUnitPrecision(t *testing.T) {
	assert.True(t, MustParse("10.01", "USD").IsMinorUnitPrecise())
	assert.False(t, MustParse("10.005", "USD").IsMinorUnitPrecise())
	assert.False(t, MustParse("10.5", "JPY").IsMinorUnitPrecise())
	assert.Equal(t, "10.01", MustParse("10.005", "USD").Round().StringFixed())
}

func TestFromMinor(t *testing.T) {
	assert.Equal(t, "-12.34", FromMinor(-1234, "USD").StringFixed())
	assert.Equal(t, "1234", FromMinor(1234, "JPY").StringFixed())
}

func TestJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Amount Money `json:"amount"`
	}{MustParse("60", "USD")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"60.00"}`, string(b))

	var in struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"12.30","b":7.5}`), &in))
	assert.Equal(t, "12.30", in.A.In("USD").StringFixed())
	assert.Equal(t, "7.50", in.B.In("USD").StringFixed())

	require.Error(t, json.Unmarshal([]byte(`{"a":"abc"}`), &in))
	require.ErrorIs(t, json.Unmarshal([]byte(`{"a":1e400}`), &in), ErrInvalidAmount)
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "$60.00", MustParse("60", "USD").Display())
}

func TestSum(t *testing.T) {
	got, err := Sum("USD", MustParse("30", "USD"), MustParse("30", "USD"), MustParse("30", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "90.00", got.StringFixed())

	empty, err := Sum("USD")
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
	assert.Equal(t, "USD", empty.Currency())
}
