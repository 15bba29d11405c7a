package atm

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// PINGuard checks a card PIN against a bcrypt hash and locks the card after
// maxAttempts consecutive failures.
type PINGuard struct {
	mu          sync.Mutex
	hash        []byte
	maxAttempts int
	failures    int
}

// NewPINGuard validates the stored hash and returns a guard for it.
func NewPINGuard(hash string, maxAttempts int) (*PINGuard, error) {
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max PIN attempts must be positive, got %d", maxAttempts)
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid PIN hash: %w", err)
	}
	return &PINGuard{hash: []byte(hash), maxAttempts: maxAttempts}, nil
}

// Verify compares pin with the stored hash. A match resets the failure count.
func (g *PINGuard) Verify(pin string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failures >= g.maxAttempts {
		return ErrCardLocked
	}

	err := bcrypt.CompareHashAndPassword(g.hash, []byte(pin))
	switch {
	case err == nil:
		g.failures = 0
		return nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		g.failures++
		if g.failures >= g.maxAttempts {
			return ErrCardLocked
		}
		return ErrWrongPIN
	default:
		return fmt.Errorf("failed to compare PIN: %w", err)
	}
}

// Remaining reports how many attempts are left before the card locks.
func (g *PINGuard) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxAttempts - g.failures
}

// HashPIN produces a bcrypt hash suitable for ATM_PIN_HASH.
func HashPIN(pin string) (string, error) {
	if pin == "" {
		return "", errors.New("PIN must not be empty")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(h), nil
}
