package atm

import "errors"

var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient balance for withdrawal")

	// ErrWrongPIN is returned when a PIN does not match the card.
	ErrWrongPIN = errors.New("incorrect PIN")

	// ErrCardLocked is returned once the PIN attempt limit is reached.
	ErrCardLocked = errors.New("card locked after too many PIN attempts")
)
