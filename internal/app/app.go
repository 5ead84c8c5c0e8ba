// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/fasilmap/internal/auth"
	"github.com/hitoshi/fasilmap/internal/config"
	"github.com/hitoshi/fasilmap/internal/database"
	"github.com/hitoshi/fasilmap/internal/facility"
	"github.com/hitoshi/fasilmap/internal/handler"
	"github.com/hitoshi/fasilmap/internal/logger"
	"github.com/hitoshi/fasilmap/internal/metrics"
	"github.com/hitoshi/fasilmap/internal/middleware"
	"github.com/hitoshi/fasilmap/internal/ratelimit"
	"github.com/hitoshi/fasilmap/internal/repository"
	"github.com/hitoshi/fasilmap/internal/response"
	"github.com/hitoshi/fasilmap/internal/security"
	"github.com/hitoshi/fasilmap/internal/upload"
)

// cleanupInterval は期限切れセッション・レートウィンドウの掃除間隔。
const cleanupInterval = time.Hour

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		// 設定エラーも構造化ログで報告できるようデフォルト設定でセットアップする
		logger.SetupDefault(w, false)
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.Debug)
	response.SetDebug(cfg.Debug)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeedAdmin:
		return runSeedAdmin(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	facilityRepo := repository.NewPostgresFacilityRepo(db)
	rateWindowRepo := repository.NewPostgresRateWindowRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. ドメインサービスの初期化
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	authService := auth.NewService(userRepo, sessionRepo, hasher, auth.ServiceConfig{
		SessionTimeout: cfg.SessionTimeout,
	})

	urlGuard := security.NewURLGuard()
	photoStore, err := upload.NewPhotoStore(cfg.UploadDir, cfg.UploadMaxSize, urlGuard)
	if err != nil {
		return fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	facilityService := facility.NewService(facilityRepo, photoStore)

	// 5. レート制限の初期化
	// ログインは再起動をまたいで数えるためPostgresストアを使う
	loginLimiter := ratelimit.NewLimiter(rateWindowRepo)
	generalLimiter := middleware.NewIPRateLimiter(cfg.RateLimitGeneral, collector)
	defer generalLimiter.Stop()

	// 6. ルーターの構築
	deps := &handler.RouterDeps{
		SessionFinder:  sessionRepo,
		LoginLimiter:   loginLimiter,
		LoginMax:       cfg.RateLimitLoginMax,
		LoginWindow:    cfg.RateLimitLoginWindow,
		GeneralLimiter: generalLimiter,

		AuthService: authService,
		AuthConfig: handler.AuthHandlerConfig{
			CookieDomain: cfg.CookieDomain,
			CookieSecure: cfg.CookieSecure,
		},

		FacilityService: facilityService,

		DB:        db,
		Metrics:   collector,
		Gatherer:  registry,
		UploadDir: cfg.UploadDir,
		Logger:    slog.Default(),
	}

	router := handler.NewRouter(deps)

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 期限切れセッションとレートウィンドウの定期削除
	go runExpiryCleanup(ctx, sessionRepo, rateWindowRepo)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// expiredDeleter は期限切れレコードの一括削除インターフェース。
type expiredDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// runExpiryCleanup は期限切れセッションとレートウィンドウを定期的に削除する。
func runExpiryCleanup(ctx context.Context, sessions, windows expiredDeleter) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := sessions.DeleteExpired(ctx); err != nil {
				slog.Error("session cleanup failed", slog.String("error", err.Error()))
			} else if n > 0 {
				slog.Info("expired sessions removed", slog.Int64("count", n))
			}
			if n, err := windows.DeleteExpired(ctx); err != nil {
				slog.Error("rate window cleanup failed", slog.String("error", err.Error()))
			} else if n > 0 {
				slog.Info("expired rate windows removed", slog.Int64("count", n))
			}
		}
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runSeedAdmin は最初の管理者ユーザーを作成する。
// 認証必須のregisterエンドポイントの初期投入用で、資格情報は
// ADMIN_NAME / ADMIN_EMAIL / ADMIN_PASSWORD 環境変数から読む。
func runSeedAdmin(cfg *config.Config) error {
	name := os.Getenv("ADMIN_NAME")
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("ADMIN_NAME, ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	userRepo := repository.NewPostgresUserRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	authService := auth.NewService(userRepo, sessionRepo, hasher, auth.ServiceConfig{
		SessionTimeout: cfg.SessionTimeout,
	})

	user, err := authService.Register(context.Background(), name, email, password)
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	slog.Info("admin user created",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
