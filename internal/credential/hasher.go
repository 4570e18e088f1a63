// Package credential hashes and verifies account passwords and enforces the
// password policy applied at sign-up and password change.
package credential

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyPassword feeds the comparison burned for unknown accounts.
const dummyPassword = "credential-dummy-password"

// Hasher produces salted one-way bcrypt hashes.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// NewHasher constructs a Hasher. Costs outside bcrypt's range fall back to
// bcrypt.DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("credential: dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummyHash: dummy}, nil
}

// Hash returns the bcrypt hash of plaintext. Every call draws a fresh salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &WeakPasswordError{Missing: []Requirement{RequireMaxBytes}}
	}
	if err != nil {
		return "", fmt.Errorf("credential: hash: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches hashed. Malformed hashes yield false.
func (h *Hasher) Verify(plaintext, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext)) == nil
}

// Burn spends the same work as a Verify against a real hash. Login calls it when
// the account does not exist so both branches take comparable time.
func (h *Hasher) Burn(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
