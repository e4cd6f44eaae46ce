package ledger

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/tripledger/internal/models"
	"github.com/mmynk/tripledger/internal/money"
)

func assertBalances(t *testing.T, got Balances, want map[string]string) {
	t.Helper()
	m := got.Map()
	require.Len(t, m, len(want))
	for member, amount := range want {
		bal, ok := m[member]
		require.True(t, ok, "missing balance for %s", member)
		assert.Equal(t, amount, bal.StringFixed(), "balance for %s", member)
	}
}

func TestComputeBalances_ScenarioA(t *testing.T) {
	members := []string{"alice", "bob", "charlie"}
	expenses := []models.Expense{
		expense("alice", "90.00", "alice", "30.00", "bob", "30.00", "charlie", "30.00"),
		expense("bob", "20.00", "charlie", "20.00"),
	}

	balances := ComputeBalances("USD", members, expenses)
	assertBalances(t, balances, map[string]string{"alice": "60.00", "bob": "-10.00", "charlie": "-50.00"})
	assert.True(t, balances.Total("USD").IsZero())

	// charlie pays alice back 50.00
	expenses = append(expenses, expense("charlie", "50.00", "alice", "50.00"))
	balances = ComputeBalances("USD", members, expenses)
	assertBalances(t, balances, map[string]string{"alice": "10.00", "bob": "-10.00", "charlie": "0.00"})
	assert.True(t, balances.Total("USD").IsZero())
}

func TestComputeBalances_PaidAndOwed(t *testing.T) {
	balances := ComputeBalances("USD", []string{"alice", "bob"}, []models.Expense{
		expense("alice", "40.00", "alice", "20.00", "bob", "20.00"),
		expense("bob", "10.00", "alice", "10.00"),
	})
	require.Len(t, balances, 2)
	alice := balances[0]
	assert.Equal(t, "alice", alice.MemberID)
	assert.Equal(t, "40.00", alice.Paid.StringFixed())
	assert.Equal(t, "30.00", alice.Owed.StringFixed())
	assert.Equal(t, "10.00", alice.Balance.StringFixed())
}

func TestComputeBalances_CoversIdleMembers(t *testing.T) {
	balances := ComputeBalances("USD", []string{"zoe", "alice", "bob"}, []models.Expense{
		expense("alice", "10.00", "bob", "10.00"),
	})
	assertBalances(t, balances, map[string]string{"alice": "10.00", "bob": "-10.00", "zoe": "0.00"})

	ids := make([]string, len(balances))
	for i, b := range balances {
		ids[i] = b.MemberID
	}
	assert.Equal(t, []string{"alice", "bob", "zoe"}, ids)
}

func TestComputeBalances_EmptyGroup(t *testing.T) {
	balances := ComputeBalances("USD", []string{"alice"}, nil)
	assertBalances(t, balances, map[string]string{"alice": "0.00"})
}

func TestComputeBalances_FormerMemberKeepsConservation(t *testing.T) {
	balances := ComputeBalances("USD", []string{"alice"}, []models.Expense{
		expense("ghost", "12.00", "alice", "12.00"),
	})
	assert.True(t, balances.Total("USD").IsZero())
	assert.Equal(t, "12.00", balances.Map()["ghost"].StringFixed())
}

func TestComputeBalances_Idempotent(t *testing.T) {
	members, expenses := randomLedger(rand.New(rand.NewSource(7)), 6, 40)
	first := ComputeBalances("USD", members, expenses)
	second := ComputeBalances("USD", members, expenses)
	assert.Equal(t, first, second)
}

func TestComputeBalances_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		members, expenses := randomLedger(rng, 2+rng.Intn(8), rng.Intn(30))
		for _, e := range expenses {
			require.NoError(t, ValidateExpense(SubmissionFromExpense(&e, "USD"), members))
		}
		balances := ComputeBalances("USD", members, expenses)
		require.True(t, balances.Total("USD").IsZero(), "iteration %d: balances sum to %s", i, balances.Total("USD"))
	}
}

// randomLedger builds valid expenses with uneven cent amounts.
func randomLedger(rng *rand.Rand, nMembers, nExpenses int) ([]string, []models.Expense) {
	members := make([]string, nMembers)
	for i := range members {
		members[i] = string(rune('a' + i))
	}
	expenses := make([]models.Expense, nExpenses)
	for i := range expenses {
		total := money.FromMinor(rng.Int63n(100000), "USD")
		payer := members[rng.Intn(nMembers)]
		owed := members[:1+rng.Intn(nMembers)]
		e := models.Expense{PayerID: payer, TotalAmount: total}
		for _, line := range SplitEvenly(total, owed) {
			e.Splits = append(e.Splits, models.Split{UserID: line.UserID, AmountOwed: line.Amount})
		}
		expenses[i] = e
	}
	return members, expenses
}
