package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fasilmap/internal/metrics"
	"github.com/hitoshi/fasilmap/internal/middleware"
	"github.com/hitoshi/fasilmap/internal/ratelimit"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder  middleware.SessionFinder
	LoginLimiter   *ratelimit.Limiter
	LoginMax       int
	LoginWindow    time.Duration
	GeneralLimiter *middleware.IPRateLimiter

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 施設
	FacilityService FacilityServiceInterface

	// 運用系
	DB        Pinger
	Metrics   metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
	UploadDir string
	Logger    *slog.Logger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Metrics → Logging → Session
//
// 認証が必要なルートにはRequireAuthを、ログインには専用の
// 固定ウィンドウ制限を重ねる。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware())
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.Metrics)
	facilityHandler := NewFacilityHandler(deps.FacilityService, deps.Metrics)

	// --- API全般のレート制限配下のルート ---
	r.Group(func(r chi.Router) {
		if deps.GeneralLimiter != nil {
			r.Use(deps.GeneralLimiter.Middleware())
		}

		// 認証
		r.Route("/api/auth", func(r chi.Router) {
			// POST /api/auth/login - ログイン専用の固定ウィンドウ制限を追加
			r.With(middleware.NewLoginRateLimitMiddleware(
				deps.LoginLimiter, deps.LoginMax, deps.LoginWindow, deps.Metrics,
			)).Post("/login", authHandler.Login)

			r.Delete("/logout", authHandler.Logout)
			r.Get("/check", authHandler.Check)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth())
				r.Get("/profile", authHandler.Profile)
				r.Post("/register", authHandler.Register)
			})
		})

		// 施設管理
		r.Route("/api/facilities", func(r chi.Router) {
			r.Get("/", facilityHandler.List)
			r.Get("/{id}", facilityHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth())
				r.Post("/", facilityHandler.Create)
				r.Put("/{id}", facilityHandler.Update)
				r.Post("/{id}", facilityHandler.Update)
				r.Delete("/{id}", facilityHandler.Delete)
			})
		})
	})

	// --- 運用系のルート ---
	r.Get("/healthz", NewHealthHandler(deps.DB))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// 施設写真の静的配信
	if deps.UploadDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadDir)))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	return r
}
