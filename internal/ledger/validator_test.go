package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripledger/internal/money"
)

func TestValidateExpense(t *testing.T) {
	members := []string{"alice", "bob", "charlie"}
	line := func(user, amount string) SplitLine { return SplitLine{UserID: user, Amount: usd(amount)} }

	tests := []struct {
		name       string
		sub        Submission
		wantReason Reason
	}{
		{
			name: "even three-way split",
			sub: Submission{PayerID: "alice", Total: usd("90.00"),
				Splits: []SplitLine{line("alice", "30"), line("bob", "30"), line("charlie", "30")}},
		},
		{
			name: "single owed party",
			sub:  Submission{PayerID: "bob", Total: usd("20.00"), Splits: []SplitLine{line("charlie", "20.00")}},
		},
		{
			name: "zero total with zero split",
			sub:  Submission{PayerID: "bob", Total: usd("0"), Splits: []SplitLine{line("charlie", "0")}},
		},
		{
			name:       "payer not a member",
			sub:        Submission{PayerID: "mallory", Total: usd("10"), Splits: []SplitLine{line("alice", "10")}},
			wantReason: ReasonInvalidPayer,
		},
		{
			name:       "empty payer",
			sub:        Submission{Total: usd("10"), Splits: []SplitLine{line("alice", "10")}},
			wantReason: ReasonInvalidPayer,
		},
		{
			name:       "no splits",
			sub:        Submission{PayerID: "alice", Total: usd("10")},
			wantReason: ReasonNoSplits,
		},
		{
			name: "duplicate split user",
			sub: Submission{PayerID: "alice", Total: usd("10"),
				Splits: []SplitLine{line("bob", "5"), line("bob", "5")}},
			wantReason: ReasonDuplicateSplitUser,
		},
		{
			name: "duplicate is reported before non-member",
			sub: Submission{PayerID: "alice", Total: usd("10"),
				Splits: []SplitLine{line("mallory", "2"), line("bob", "4"), line("bob", "4")}},
			wantReason: ReasonDuplicateSplitUser,
		},
		{
			name: "split user not a member",
			sub: Submission{PayerID: "alice", Total: usd("10"),
				Splits: []SplitLine{line("alice", "5"), line("mallory", "5")}},
			wantReason: ReasonInvalidSplitMember,
		},
		{
			name:       "negative split",
			sub:        Submission{PayerID: "alice", Total: usd("0"), Splits: []SplitLine{line("bob", "-5"), line("charlie", "5")}},
			wantReason: ReasonInvalidAmount,
		},
		{
			name:       "negative total",
			sub:        Submission{PayerID: "alice", Total: usd("-5"), Splits: []SplitLine{line("bob", "-5")}},
			wantReason: ReasonInvalidAmount,
		},
		{
			name:       "sub-cent precision",
			sub:        Submission{PayerID: "alice", Total: usd("10.005"), Splits: []SplitLine{line("bob", "10.005")}},
			wantReason: ReasonInvalidAmount,
		},
		{
			name: "other currency",
			sub: Submission{PayerID: "alice", Total: usd("10"),
				Splits: []SplitLine{{UserID: "bob", Amount: money.MustParse("10", "EUR")}}},
			wantReason: ReasonInvalidAmount,
		},
		{
			name: "one cent short",
			sub: Submission{PayerID: "alice", Total: usd("90.00"),
				Splits: []SplitLine{line("alice", "30"), line("bob", "30"), line("charlie", "29.99")}},
			wantReason: ReasonSplitSumMismatch,
		},
		{
			name: "one cent over",
			sub: Submission{PayerID: "alice", Total: usd("90.00"),
				Splits: []SplitLine{line("alice", "30"), line("bob", "30"), line("charlie", "30.01")}},
			wantReason: ReasonSplitSumMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sub.GroupID = "g1"
			tt.sub.Currency = "USD"
			err := ValidateExpense(tt.sub, members)
			if tt.wantReason == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.True(t, IsKind(err, KindValidation))
			assert.Equal(t, tt.wantReason, ReasonOf(err))
			assert.Contains(t, err.Error(), string(tt.wantReason))
		})
	}
}

func TestValidateExpense_PayerCheckedFirst(t *testing.T) {
	// Every rule is broken; the payer rule wins.
	sub := Submission{
		GroupID:  "g1",
		Currency: "USD",
		PayerID:  "mallory",
		Total:    usd("1"),
		Splits:   []SplitLine{{UserID: "x", Amount: usd("5")}, {UserID: "x", Amount: usd("5")}},
	}
	assert.Equal(t, ReasonInvalidPayer, ReasonOf(ValidateExpense(sub, []string{"alice"})))
}

func TestValidateParties(t *testing.T) {
	members := []string{"alice", "bob"}
	tests := []struct {
		name  string
		payer string
		users []string
		want  Reason
	}{
		{name: "valid", payer: "alice", users: []string{"alice", "bob"}},
		{name: "payer outside", payer: "mallory", users: []string{"mallory", "mallory"}, want: ReasonInvalidPayer},
		{name: "no users", payer: "alice", want: ReasonNoSplits},
		{name: "duplicate before outsider", payer: "alice", users: []string{"carol", "bob", "bob"}, want: ReasonDuplicateSplitUser},
		{name: "outsider", payer: "bob", users: []string{"alice", "carol"}, want: ReasonInvalidSplitMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParties("g1", tt.payer, tt.users, members)
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, ReasonOf(err))
		})
	}
}
