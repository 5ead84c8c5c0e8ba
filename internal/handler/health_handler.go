package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/fasilmap/internal/response"
)

// Pinger はDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewHealthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /healthz
func NewHealthHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			slog.Error("health check failed",
				slog.String("error", err.Error()),
			)
			response.WriteError(w, http.StatusServiceUnavailable, "Service unavailable")
			return
		}
		response.WriteSuccess(w, http.StatusOK, map[string]any{
			"status": "ok",
		}, "")
	}
}
