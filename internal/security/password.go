// Package security はアプリケーションのセキュリティ機能を提供する。
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher はパスワードの一方向ハッシュ化と検証を提供する。
// bcryptを使用し、ソルトはハッシュ値に内包される。
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher は指定コストのPasswordHasherを生成する。
// costがbcryptの有効範囲外の場合はDefaultCostを使用する。
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash はパスワードをbcryptでハッシュ化する。
func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify はパスワードがハッシュ値と一致するかを返す。
// 比較はbcrypt内部で定数時間に行われる。
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
