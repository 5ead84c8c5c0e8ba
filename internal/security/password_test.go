package security

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ハッシュ化したパスワードが検証を通ることを検証
func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("rahasia123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash should be a bcrypt hash, got %q", hash)
	}

	if !h.Verify("rahasia123", hash) {
		t.Error("Verify should succeed for the correct password")
	}
	if h.Verify("wrong-password", hash) {
		t.Error("Verify should fail for a wrong password")
	}
}

// 同じパスワードでもソルトにより毎回異なるハッシュになることを検証
func TestPasswordHasher_HashesAreSalted(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	h1, err := h.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := h.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 == h2 {
		t.Error("two hashes of the same password should differ")
	}
}

// 範囲外のコストはデフォルトコストに丸められることを検証
func TestNewPasswordHasher_InvalidCostFallsBack(t *testing.T) {
	h := NewPasswordHasher(100)
	if h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", h.cost, bcrypt.DefaultCost)
	}

	h = NewPasswordHasher(0)
	if h.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", h.cost, bcrypt.DefaultCost)
	}
}

// 不正なハッシュ値に対してVerifyがfalseを返すことを検証
func TestPasswordHasher_VerifyInvalidHash(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)
	if h.Verify("password", "not-a-bcrypt-hash") {
		t.Error("Verify should fail for a malformed hash")
	}
}
