package service

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.HashPassword("hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("hash = %q, want a bcrypt hash", hash)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in the clear")
	}

	if !h.CheckPasswordHash("hunter22", hash) {
		t.Error("correct password rejected")
	}
	if h.CheckPasswordHash("hunter23", hash) {
		t.Error("wrong password accepted")
	}
	if h.CheckPasswordHash("hunter22", "not-a-hash") {
		t.Error("malformed hash accepted")
	}
}

func TestPasswordHasherCostClamped(t *testing.T) {
	for _, cost := range []int{-1, 0, bcrypt.MaxCost + 5} {
		h := NewPasswordHasher(cost)
		if h.cost < bcrypt.MinCost || h.cost > bcrypt.MaxCost {
			t.Errorf("cost %d clamped to %d, outside bcrypt range", cost, h.cost)
		}
	}
}
