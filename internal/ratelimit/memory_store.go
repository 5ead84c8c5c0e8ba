package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/fasilmap/internal/model"
)

// MemoryStore はインメモリの固定ウィンドウカウンタストア。
// バックグラウンドで満了済みエントリを定期的にクリーンアップする。
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*model.RateWindow

	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
}

// NewMemoryStore はMemoryStoreを生成し、クリーンアップループを開始する。
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*model.RateWindow),
		cleanupInterval: cleanupInterval,
		stopCh:          make(chan struct{}),
	}

	go s.cleanupLoop()

	return s
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Get は指定identifierのカウンタを取得する。存在しない場合はnilを返す。
func (s *MemoryStore) Get(ctx context.Context, identifier string) (*model.RateWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.windows[identifier]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

// Put はカウンタを保存する。
func (s *MemoryStore) Put(ctx context.Context, window *model.RateWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *window
	s.windows[window.Identifier] = &copied
	return nil
}

// Len は現在保持しているエントリ数を返す。テストおよびメトリクス用。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.windows)
}

// cleanupLoop はバックグラウンドで満了済みエントリを定期的に削除する。
func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup はウィンドウ満了からクリーンアップ間隔以上経過したエントリを削除する。
func (s *MemoryStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for identifier, w := range s.windows {
		if now.Sub(w.WindowResetTime) > s.cleanupInterval {
			delete(s.windows, identifier)
		}
	}
}

// compile-time interface check
var _ Store = (*MemoryStore)(nil)
