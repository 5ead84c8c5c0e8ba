package security

import (
	"testing"
	"time"
)

// ValidateURLが安全なURLを許可することを検証
func TestURLGuard_ValidateURL_Allowed(t *testing.T) {
	g := NewURLGuard()

	tests := []string{
		"https://example.com/photo.jpg",
		"http://example.com/images/masjid.png",
		"https://cdn.example.org:443/a.webp",
		"https://8.8.8.8/photo.jpg",
	}

	for _, rawURL := range tests {
		t.Run(rawURL, func(t *testing.T) {
			if err := g.ValidateURL(rawURL); err != nil {
				t.Errorf("ValidateURL(%q) = %v, want nil", rawURL, err)
			}
		})
	}
}

// ValidateURLが危険なURLを拒否することを検証
func TestURLGuard_ValidateURL_Blocked(t *testing.T) {
	g := NewURLGuard()

	tests := []struct {
		name   string
		rawURL string
	}{
		{"empty", ""},
		{"ftp scheme", "ftp://example.com/photo.jpg"},
		{"javascript scheme", "javascript:alert(1)"},
		{"no host", "https:///photo.jpg"},
		{"localhost", "http://localhost/photo.jpg"},
		{"loopback IP", "http://127.0.0.1/photo.jpg"},
		{"private 10.x", "http://10.0.0.5/photo.jpg"},
		{"private 172.16.x", "http://172.16.1.1/photo.jpg"},
		{"private 192.168.x", "http://192.168.1.10/photo.jpg"},
		{"metadata IP", "http://169.254.169.254/latest/meta-data/"},
		{"current network", "http://0.0.0.0/photo.jpg"},
		{"IPv6 loopback", "http://[::1]/photo.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := g.ValidateURL(tt.rawURL); err == nil {
				t.Errorf("ValidateURL(%q) = nil, want error", tt.rawURL)
			}
		})
	}
}

// NewSafeClientがタイムアウト付きクライアントを生成することを検証
func TestURLGuard_NewSafeClient(t *testing.T) {
	g := NewURLGuard()

	client := g.NewSafeClient(5 * time.Second)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
