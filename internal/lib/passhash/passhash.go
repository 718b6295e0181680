// Package passhash wraps bcrypt hashing for the interactive login path.
package passhash

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrMalformedHash is returned when a stored hash cannot be parsed.
// It signals a corrupted credential record, not a failed login.
var ErrMalformedHash = errors.New("malformed password hash")

type Hasher struct {
	cost int
}

// New returns a Hasher with the given bcrypt cost. A cost outside the
// supported range falls back to bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash derives a salted one-way hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	const op = "passhash.Hash"

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// an error is returned only for a hash bcrypt cannot parse.
func (h *Hasher) Verify(plaintext, hash string) (bool, error) {
	const op = "passhash.Verify"

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", op, ErrMalformedHash)
}
