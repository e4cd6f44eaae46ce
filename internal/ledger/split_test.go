package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEvenly(t *testing.T) {
	tests := []struct {
		name  string
		total string
		users []string
		want  []string
	}{
		{name: "divides exactly", total: "90.00", users: []string{"a", "b", "c"}, want: []string{"30.00", "30.00", "30.00"}},
		{name: "leftover cent to first", total: "100.00", users: []string{"a", "b", "c"}, want: []string{"33.34", "33.33", "33.33"}},
		{name: "two leftover cents", total: "0.05", users: []string{"a", "b", "c"}, want: []string{"0.02", "0.02", "0.01"}},
		{name: "single user", total: "12.34", users: []string{"a"}, want: []string{"12.34"}},
		{name: "zero total", total: "0", users: []string{"a", "b"}, want: []string{"0.00", "0.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := SplitEvenly(usd(tt.total), tt.users)
			require.Len(t, lines, len(tt.want))
			sum := usd("0")
			for i, line := range lines {
				assert.Equal(t, tt.users[i], line.UserID)
				assert.Equal(t, tt.want[i], line.Amount.StringFixed())
				sum = sum.Add(line.Amount)
			}
			assert.True(t, sum.EqualAmount(usd(tt.total)))
		})
	}

	assert.Nil(t, SplitEvenly(usd("10"), nil))
}

func TestSplitItemized(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		total   string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "simple two-person split with tax",
			items: []Item{
				{Description: "Pizza", Amount: usd("20.00"), AssignedTo: []string{"Alice", "Bob"}},
				{Description: "Salad", Amount: usd("10.00"), AssignedTo: []string{"Alice"}},
			},
			// Alice: 20 + 2 tax, Bob: 10 + 1 tax
			total: "33.00",
			want:  map[string]string{"Alice": "22.00", "Bob": "11.00"},
		},
		{
			name: "tax that does not divide evenly",
			items: []Item{
				{Description: "Wine", Amount: usd("10.00"), AssignedTo: []string{"A"}},
				{Description: "Bread", Amount: usd("10.00"), AssignedTo: []string{"B"}},
				{Description: "Cheese", Amount: usd("10.00"), AssignedTo: []string{"C"}},
			},
			total: "31.00",
			want:  map[string]string{"A": "10.34", "B": "10.33", "C": "10.33"},
		},
		{
			name: "discount below subtotal",
			items: []Item{
				{Description: "Room", Amount: usd("75.00"), AssignedTo: []string{"A"}},
				{Description: "Breakfast", Amount: usd("25.00"), AssignedTo: []string{"B"}},
			},
			total: "90.00",
			want:  map[string]string{"A": "67.50", "B": "22.50"},
		},
		{
			name: "shared item with odd cents",
			items: []Item{
				{Description: "Taxi", Amount: usd("10.00"), AssignedTo: []string{"A", "B", "C"}},
			},
			total: "10.00",
			want:  map[string]string{"A": "3.34", "B": "3.33", "C": "3.33"},
		},
		{
			name:    "no items",
			total:   "10.00",
			wantErr: true,
		},
		{
			name:    "unassigned item",
			items:   []Item{{Description: "Mystery", Amount: usd("5.00")}},
			total:   "5.00",
			wantErr: true,
		},
		{
			name:    "zero subtotal",
			items:   []Item{{Description: "Free", Amount: usd("0"), AssignedTo: []string{"A"}}},
			total:   "5.00",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := SplitItemized(tt.items, usd(tt.total))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			got := make(map[string]string)
			sum := usd("0")
			for _, line := range lines {
				got[line.UserID] = line.Amount.StringFixed()
				sum = sum.Add(line.Amount)
			}
			assert.Equal(t, tt.want, got)
			assert.True(t, sum.EqualAmount(usd(tt.total)), "sum %s != total %s", sum, tt.total)
		})
	}
}
