// Package atm holds the single-account ledger behind the ATM console.
package atm

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/kiosk/pkg/audit"
)

// Auditor receives one journal line per ledger operation.
type Auditor interface {
	Append(payload string) *audit.LogEntry
}

// Ledger holds one account balance. The balance only changes through
// Deposit and Withdraw.
type Ledger struct {
	mu      sync.Mutex
	balance decimal.Decimal
	auditor Auditor
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithAuditor journals every deposit and withdrawal outcome to a.
func WithAuditor(a Auditor) Option {
	return func(l *Ledger) {
		l.auditor = a
	}
}

// NewLedger creates a ledger with the given opening balance.
func NewLedger(initial decimal.Decimal, opts ...Option) *Ledger {
	l := &Ledger{balance: initial}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deposit adds amount to the balance and returns the new balance.
func (l *Ledger) Deposit(amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		l.journal("deposit", amount, ErrInvalidAmount)
		return l.balance, ErrInvalidAmount
	}

	l.balance = l.balance.Add(amount)
	l.journal("deposit", amount, nil)
	return l.balance, nil
}

// Withdraw removes amount from the balance and returns the new balance.
// The balance is left untouched when the amount is not positive or exceeds
// the available funds.
func (l *Ledger) Withdraw(amount decimal.Decimal) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !amount.IsPositive() {
		l.journal("withdraw", amount, ErrInvalidAmount)
		return l.balance, ErrInvalidAmount
	}
	if amount.GreaterThan(l.balance) {
		l.journal("withdraw", amount, ErrInsufficientFunds)
		return l.balance, ErrInsufficientFunds
	}

	l.balance = l.balance.Sub(amount)
	l.journal("withdraw", amount, nil)
	return l.balance, nil
}

// Balance returns the current balance.
func (l *Ledger) Balance() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance
}

// journal must be called with l.mu held.
func (l *Ledger) journal(op string, amount decimal.Decimal, err error) {
	if l.auditor == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = err.Error()
	}
	l.auditor.Append(fmt.Sprintf("ledger op=%s amount=%s balance=%s result=%q", op, amount, l.balance, result))
}
