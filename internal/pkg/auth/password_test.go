package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.HashPassword("Secret123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Secret123" {
		t.Fatal("password stored in clear text")
	}
	if !h.VerifyPassword(hash, "Secret123") {
		t.Error("correct password rejected")
	}
	if h.VerifyPassword(hash, "Secret124") {
		t.Error("wrong password accepted")
	}
	if h.VerifyPassword("not-a-hash", "Secret123") {
		t.Error("malformed hash accepted")
	}
}

func TestNewPasswordHasherClampsCost(t *testing.T) {
	if got := NewPasswordHasher(1).cost; got != bcrypt.DefaultCost {
		t.Errorf("cost 1: got %d, want default", got)
	}
	if got := NewPasswordHasher(64).cost; got != bcrypt.DefaultCost {
		t.Errorf("cost 64: got %d, want default", got)
	}
	if got := NewPasswordHasher(bcrypt.MinCost).cost; got != bcrypt.MinCost {
		t.Errorf("min cost: got %d", got)
	}
}
