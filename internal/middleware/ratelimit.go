package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/fasilmap/internal/ratelimit"
	"github.com/hitoshi/fasilmap/internal/response"
)

// rateLimitMessage はレート制限超過時のユーザー向けメッセージ。
const rateLimitMessage = "Too many requests. Please try again later."

// RateLimitMetrics はレート制限による拒否を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。nilを許容する。
type RateLimitMetrics interface {
	RecordRateLimitRejection(limitType string)
}

// NewLoginRateLimitMiddleware はログイン試行の固定ウィンドウ制限ミドルウェアを返す。
// 送信元IPごとにwindow内でmaxRequests回まで許可し、超過には429の
// 統一エンベロープとRetry-Afterヘッダーを返す。
// ストア障害時はリクエストを拒否する（フェイルクローズ）。
func NewLoginRateLimitMiddleware(limiter *ratelimit.Limiter, maxRequests int, window time.Duration, m RateLimitMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := ClientIP(r) + ":login"

			allowed, err := limiter.Allow(r.Context(), identifier, maxRequests, window)
			if err != nil {
				slog.Error("rate limit store failure",
					slog.String("identifier", identifier),
					slog.String("error", err.Error()),
				)
				response.WriteError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
				return
			}
			if !allowed {
				retryAfter := limiter.RetryAfter(r.Context(), identifier)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				if m != nil {
					m.RecordRateLimitRejection("login")
				}
				slog.Warn("rate limit exceeded",
					slog.String("identifier", identifier),
					slog.String("limit_type", "login"),
				)
				response.WriteError(w, http.StatusTooManyRequests, rateLimitMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ipLimiter は送信元IPごとのレートリミッターとアクセス時刻を保持する。
type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter はAPI全般の送信元IPごとのレート制限を管理する。
// トークンバケット方式で、1分あたりの許可数からレートを算出する。
type IPRateLimiter struct {
	limit   rate.Limit
	burst   int
	metrics RateLimitMetrics

	cleanupInterval time.Duration

	mu       sync.RWMutex
	limiters map[string]*ipLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter は新しいIPRateLimiterを生成する。
// requestsPerMinuteは1分あたりの許可リクエスト数。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewIPRateLimiter(requestsPerMinute int, m RateLimitMetrics) *IPRateLimiter {
	rl := &IPRateLimiter{
		limit:           rate.Limit(float64(requestsPerMinute) / 60.0),
		burst:           requestsPerMinute,
		metrics:         m,
		cleanupInterval: 5 * time.Minute,
		limiters:        make(map[string]*ipLimiter),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

// Middleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *IPRateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)

			if !rl.getOrCreate(ip).Allow() {
				w.Header().Set("Retry-After", "1")
				if rl.metrics != nil {
					rl.metrics.RecordRateLimitRejection("general")
				}
				slog.Warn("rate limit exceeded",
					slog.String("identifier", ip),
					slog.String("limit_type", "general"),
				)
				response.WriteError(w, http.StatusTooManyRequests, rateLimitMessage)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LimiterCount は現在管理されているリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *IPRateLimiter) LimiterCount() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// getOrCreate は送信元IPのリミッターを取得または作成する。
func (rl *IPRateLimiter) getOrCreate(ip string) *rate.Limiter {
	rl.mu.RLock()
	il, exists := rl.limiters[ip]
	rl.mu.RUnlock()

	if exists {
		rl.mu.Lock()
		il.lastAccess = time.Now()
		rl.mu.Unlock()
		return il.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// ダブルチェック
	if il, exists := rl.limiters[ip]; exists {
		il.lastAccess = time.Now()
		return il.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[ip] = &ipLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がcleanupIntervalの2倍を超えたエントリを削除する。
func (rl *IPRateLimiter) cleanup() {
	ttl := rl.cleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, il := range rl.limiters {
		if now.Sub(il.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}
