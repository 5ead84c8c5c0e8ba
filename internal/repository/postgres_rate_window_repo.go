package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/ratelimit"
)

// PostgresRateWindowRepo はPostgreSQLを使用したレート制限カウンタストア。
// プロセス再起動をまたいでカウントを保持する。
// ratelimit.Storeを実装する。
type PostgresRateWindowRepo struct {
	db *sql.DB
}

// NewPostgresRateWindowRepo はPostgresRateWindowRepoを生成する。
func NewPostgresRateWindowRepo(db *sql.DB) *PostgresRateWindowRepo {
	return &PostgresRateWindowRepo{db: db}
}

// Get は指定identifierのカウンタを取得する。存在しない場合はnilを返す。
func (r *PostgresRateWindowRepo) Get(ctx context.Context, identifier string) (*model.RateWindow, error) {
	window := &model.RateWindow{}
	err := r.db.QueryRowContext(ctx,
		`SELECT identifier, request_count, window_reset_time
		 FROM rate_windows WHERE identifier = $1`,
		identifier,
	).Scan(&window.Identifier, &window.RequestCount, &window.WindowResetTime)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find rate window: %w", err)
	}

	return window, nil
}

// Put はカウンタをUPSERTする。
// 並行リクエスト間の厳密なアトミック性は保証しない（わずかな過剰許可は許容）。
func (r *PostgresRateWindowRepo) Put(ctx context.Context, window *model.RateWindow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rate_windows (identifier, request_count, window_reset_time)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (identifier) DO UPDATE
		 SET request_count = EXCLUDED.request_count,
		     window_reset_time = EXCLUDED.window_reset_time`,
		window.Identifier, window.RequestCount, window.WindowResetTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert rate window: %w", err)
	}
	return nil
}

// DeleteExpired は満了済みカウンタを一括削除し、削除件数を返す。
func (r *PostgresRateWindowRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM rate_windows WHERE window_reset_time <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired rate windows: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// compile-time interface check
var _ ratelimit.Store = (*PostgresRateWindowRepo)(nil)
