// Package ratelimit は固定ウィンドウ方式のレート制限を提供する。
//
// identifierごとに1つのカウンタレコードを保持し、ウィンドウ満了で
// カウントをリセットする。スライディングウィンドウやトークンバケットとは
// 異なり、ウィンドウ境界をまたぐバーストは仕様上許容される。
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/fasilmap/internal/model"
)

// Store は固定ウィンドウカウンタの保存先インターフェース。
// インメモリ実装とPostgreSQL実装があり、後者はプロセス再起動をまたいで
// カウントを保持する。並行リクエスト下のread-modify-writeは
// 厳密なアトミック性を要求せず、わずかな過剰許可は許容される。
type Store interface {
	// Get は指定identifierのカウンタを取得する。存在しない場合はnilを返す。
	Get(ctx context.Context, identifier string) (*model.RateWindow, error)
	// Put はカウンタを保存する。既存レコードは上書きされる。
	Put(ctx context.Context, window *model.RateWindow) error
}

// Limiter は固定ウィンドウ方式のレート制限器。
type Limiter struct {
	store Store
	nowFn func() time.Time
}

// NewLimiter はLimiterを生成する。
func NewLimiter(store Store) *Limiter {
	return &Limiter{
		store: store,
		nowFn: time.Now,
	}
}

// Allow はidentifierのリクエストを許可するかどうかを判定する。
//
// 初回またはウィンドウ満了後はカウントを1にリセットして許可する。
// ウィンドウ内ではカウントがmaxRequests未満の間は加算して許可し、
// 達した後は保存を行わずに拒否する。
// ストア障害の場合はエラーを返し、判定は呼び出し側に委ねる。
func (l *Limiter) Allow(ctx context.Context, identifier string, maxRequests int, window time.Duration) (bool, error) {
	if maxRequests < 1 {
		return false, nil
	}

	now := l.nowFn()

	current, err := l.store.Get(ctx, identifier)
	if err != nil {
		return false, fmt.Errorf("failed to read rate window: %w", err)
	}

	// 初回、またはウィンドウ満了
	if current == nil || !now.Before(current.WindowResetTime) {
		fresh := &model.RateWindow{
			Identifier:      identifier,
			RequestCount:    1,
			WindowResetTime: now.Add(window),
		}
		if err := l.store.Put(ctx, fresh); err != nil {
			return false, fmt.Errorf("failed to reset rate window: %w", err)
		}
		return true, nil
	}

	// 上限到達後はカウントを進めない
	if current.RequestCount >= maxRequests {
		return false, nil
	}

	current.RequestCount++
	if err := l.store.Put(ctx, current); err != nil {
		return false, fmt.Errorf("failed to update rate window: %w", err)
	}
	return true, nil
}

// RetryAfter はidentifierの現在のウィンドウが満了するまでの秒数を返す。
// レコードが存在しない、または満了済みの場合は0を返す。
func (l *Limiter) RetryAfter(ctx context.Context, identifier string) int {
	current, err := l.store.Get(ctx, identifier)
	if err != nil || current == nil {
		return 0
	}
	remaining := current.WindowResetTime.Sub(l.nowFn())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}
