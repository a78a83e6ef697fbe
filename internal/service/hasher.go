package service

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher derives and verifies credential hashes with bcrypt. The
// cost keeps hashing slow on purpose; callers must never log or persist the
// plaintext.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher clamps cost into bcrypt's valid range; zero or negative
// selects the bcrypt default.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt hash")
	}
	return string(b), nil
}

// CheckPasswordHash reports whether password matches a stored hash. The
// comparison is constant time; a malformed hash reads as a mismatch.
func (h *PasswordHasher) CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
