package console

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/example/kiosk/internal/atm"
)

func newATMMenu(input string, pin *atm.PINGuard) (*ATMMenu, *atm.Ledger, func() string) {
	p, out := newTestPrompter(input)
	ledger := atm.NewLedger(decimal.RequireFromString("1000.0"))
	return &ATMMenu{Prompt: p, Ledger: ledger, PIN: pin}, ledger, out.String
}

func TestATMMenuScenario(t *testing.T) {
	menu, ledger, output := newATMMenu("1\n1200\n2\n200\n3\n1\n200\n4\n", nil)

	require.NoError(t, menu.Run(context.Background()))

	out := output()
	assert.Contains(t, out, "Welcome to the ATM!")
	assert.Contains(t, out, "Insufficient balance for withdrawal.")
	assert.Contains(t, out, "Deposit successful. Current balance: 1200.00")
	assert.Contains(t, out, "Current balance: 1200.00")
	assert.Contains(t, out, "Withdrawal successful. Current balance: 1000.00")
	assert.Contains(t, out, "Thank you for using the ATM!")
	assert.True(t, ledger.Balance().Equal(decimal.RequireFromString("1000")))
}

func TestATMMenuRejectsNonPositiveAmounts(t *testing.T) {
	menu, ledger, output := newATMMenu("2\n0\n1\n-3\n4\n", nil)

	require.NoError(t, menu.Run(context.Background()))
	assert.Contains(t, output(), "Invalid amount. Please enter a positive value.")
	assert.True(t, ledger.Balance().Equal(decimal.RequireFromString("1000")))
}

func TestATMMenuEndOfInputExits(t *testing.T) {
	menu, _, output := newATMMenu("7\n", nil)

	require.NoError(t, menu.Run(context.Background()))
	assert.Contains(t, output(), "Invalid input. Please enter a valid integer between 1 and 4")
	assert.Contains(t, output(), "Thank you for using the ATM!")
}

func TestATMMenuPIN(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	t.Run("unlocks after a wrong attempt", func(t *testing.T) {
		guard, err := atm.NewPINGuard(string(hash), 3)
		require.NoError(t, err)
		menu, _, output := newATMMenu("0000\n1234\n3\n4\n", guard)

		require.NoError(t, menu.Run(context.Background()))
		assert.Contains(t, output(), "Incorrect PIN.")
		assert.Contains(t, output(), "2 attempt(s) remaining.")
		assert.Contains(t, output(), "Current balance: 1000.00")
	})

	t.Run("locks the card", func(t *testing.T) {
		guard, err := atm.NewPINGuard(string(hash), 2)
		require.NoError(t, err)
		menu, _, output := newATMMenu("1111\n2222\n3\n", guard)

		err = menu.Run(context.Background())
		assert.ErrorIs(t, err, atm.ErrCardLocked)
		assert.Contains(t, output(), "Your card has been locked.")
		assert.NotContains(t, output(), "Welcome to the ATM!")
	})
}

func TestATMMenuStopsOnCancelledContext(t *testing.T) {
	menu, _, output := newATMMenu("3\n4\n", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, menu.Run(ctx), context.Canceled)
	assert.Contains(t, output(), "Thank you for using the ATM!")
	assert.NotContains(t, output(), "Current balance")
}
