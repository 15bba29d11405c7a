package console

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/kiosk/internal/atm"
)

// ATMMenu drives a Ledger from a numbered menu.
type ATMMenu struct {
	Prompt *Prompter
	Ledger *atm.Ledger
	PIN    *atm.PINGuard // nil skips the PIN check
	Logger *slog.Logger
}

// Run shows the menu until the user exits, the input ends or ctx is
// cancelled. It returns atm.ErrCardLocked when the PIN check locks the card.
func (m *ATMMenu) Run(ctx context.Context) error {
	if m.Logger == nil {
		m.Logger = slog.Default()
	}

	if m.PIN != nil {
		if err := m.unlock(); err != nil {
			if errors.Is(err, ErrInputClosed) {
				return nil
			}
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			m.Prompt.Println("Thank you for using the ATM!")
			return err
		}

		m.Prompt.title("Welcome to the ATM!")
		m.Prompt.Println("1. Withdraw")
		m.Prompt.Println("2. Deposit")
		m.Prompt.Println("3. Check Balance")
		m.Prompt.Println("4. Exit")

		choice, err := m.Prompt.Int("Select an option: ", 1, 4)
		if errors.Is(err, ErrInputClosed) {
			break
		}
		if err != nil {
			return err
		}

		switch choice {
		case 1:
			err = m.withdraw()
		case 2:
			err = m.deposit()
		case 3:
			m.Prompt.Printf("Current balance: %s\n", m.Ledger.Balance().StringFixed(2))
		case 4:
			m.Prompt.Println("Thank you for using the ATM!")
			return nil
		}
		if errors.Is(err, ErrInputClosed) {
			break
		}
		if err != nil {
			return err
		}
	}

	m.Prompt.Println("Thank you for using the ATM!")
	return nil
}

func (m *ATMMenu) unlock() error {
	for {
		pin, err := m.Prompt.Text("Enter your PIN: ")
		if err != nil {
			return err
		}
		err = m.PIN.Verify(pin)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, atm.ErrWrongPIN):
			m.Prompt.failure("Incorrect PIN.")
			m.Prompt.Printf("%d attempt(s) remaining.\n", m.PIN.Remaining())
		case errors.Is(err, atm.ErrCardLocked):
			m.Logger.Warn("card locked after failed PIN attempts")
			m.Prompt.failure("Too many incorrect attempts. Your card has been locked.")
			return err
		default:
			return err
		}
	}
}

func (m *ATMMenu) withdraw() error {
	amount, err := m.Prompt.Amount("Enter the amount to withdraw: ")
	if err != nil {
		return err
	}

	bal, err := m.Ledger.Withdraw(amount)
	switch {
	case errors.Is(err, atm.ErrInvalidAmount):
		m.Prompt.failure("Invalid amount. Please enter a positive value.")
	case errors.Is(err, atm.ErrInsufficientFunds):
		m.Prompt.failure("Insufficient balance for withdrawal.")
	case err != nil:
		return err
	default:
		m.Prompt.success("Withdrawal successful. Current balance: " + bal.StringFixed(2))
	}
	return nil
}

func (m *ATMMenu) deposit() error {
	amount, err := m.Prompt.Amount("Enter the amount to deposit: ")
	if err != nil {
		return err
	}

	bal, err := m.Ledger.Deposit(amount)
	switch {
	case errors.Is(err, atm.ErrInvalidAmount):
		m.Prompt.failure("Invalid amount. Please enter a positive value.")
	case err != nil:
		return err
	default:
		m.Prompt.success("Deposit successful. Current balance: " + bal.StringFixed(2))
	}
	return nil
}
