// Package model はドメインモデルを定義する。
package model

import "time"

// User は管理画面にログインするユーザーを表す。
// PasswordHashはbcryptハッシュであり、APIレスポンスには決して含めない。
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// 有効期限はログイン時刻から固定タイムアウトで算出し、アクセスによって延長しない。
type Session struct {
	ID        string
	UserID    string
	UserName  string
	UserEmail string
	LoginTime time.Time
	ExpiresAt time.Time
}

// RateWindow は固定ウィンドウ方式のレート制限カウンタを表す。
// identifierごとに1レコードを保持し、WindowResetTime経過後はカウントをリセットする。
type RateWindow struct {
	Identifier      string
	RequestCount    int
	WindowResetTime time.Time
}
