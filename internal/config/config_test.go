package config

import (
	"testing"
	"time"
)

// DATABASE_URL未設定の場合にエラーになることを検証
func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when DATABASE_URL is not set")
	}
}

// 必須項目のみ設定した場合にデフォルト値が適用されることを検証
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fasilmap?sslmode=disable")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.SessionTimeout != time.Hour {
		t.Errorf("SessionTimeout = %v, want %v", cfg.SessionTimeout, time.Hour)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.UploadDir != "uploads" {
		t.Errorf("UploadDir = %q, want %q", cfg.UploadDir, "uploads")
	}
	if cfg.UploadMaxSize != 5242880 {
		t.Errorf("UploadMaxSize = %d, want 5242880", cfg.UploadMaxSize)
	}
	if cfg.RateLimitLoginMax != 5 {
		t.Errorf("RateLimitLoginMax = %d, want 5", cfg.RateLimitLoginMax)
	}
	if cfg.RateLimitLoginWindow != 5*time.Minute {
		t.Errorf("RateLimitLoginWindow = %v, want %v", cfg.RateLimitLoginWindow, 5*time.Minute)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false for http BaseURL")
	}
}

// SESSION_TIMEOUTが素の整数の場合に秒として解釈されることを検証
func TestLoad_SessionTimeoutSeconds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fasilmap?sslmode=disable")
	t.Setenv("SESSION_TIMEOUT", "3600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SessionTimeout != time.Hour {
		t.Errorf("SessionTimeout = %v, want %v", cfg.SessionTimeout, time.Hour)
	}
}

// BaseURLがhttpsの場合にCookieSecureが有効になることを検証
func TestLoad_CookieSecureFromBaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fasilmap?sslmode=disable")
	t.Setenv("BASE_URL", "https://fasilmap.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true for https BaseURL")
	}
}

// 不正な数値はデフォルト値にフォールバックすることを検証
func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fasilmap?sslmode=disable")
	t.Setenv("BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want default 12", cfg.BcryptCost)
	}
}
