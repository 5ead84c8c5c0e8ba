package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// CORSヘッダーの付与とプリフライト応答を検証
func TestCORSMiddleware(t *testing.T) {
	handler := NewCORSMiddleware()(okHandler())

	t.Run("headers on normal request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/facilities", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Allow-Origin = %q, want *", got)
		}
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
	})

	t.Run("preflight answered with 200", func(t *testing.T) {
		reached := false
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reached = true
		})

		req := httptest.NewRequest(http.MethodOptions, "/api/facilities", nil)
		w := httptest.NewRecorder()
		NewCORSMiddleware()(inner).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", w.Code)
		}
		if reached {
			t.Error("preflight should not reach the next handler")
		}
	})
}
