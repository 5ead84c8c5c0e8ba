// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/fasilmap/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。
	// メールアドレスが重複している場合はErrDuplicateEmailを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// FacilityFilter は施設一覧のフィルタ条件を表す。
type FacilityFilter struct {
	// Category は指定カテゴリのみに絞り込む。空文字列は全カテゴリ。
	Category string
	// Search は名前・住所・説明に対する部分一致検索語。空文字列は無条件。
	Search string
	// Limit は取得件数の上限。0以下はデフォルト値が適用される。
	Limit int
	// Offset は取得開始位置。
	Offset int
}

// FacilityRepository は施設データの永続化インターフェース。
type FacilityRepository interface {
	// FindByID は指定IDの施設を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Facility, error)

	// List はフィルタ条件に合致する施設を作成日時降順で返す。
	List(ctx context.Context, filter FacilityFilter) ([]*model.Facility, error)

	// Create は施設を作成し、採番されたIDとタイムスタンプをfacilityに書き戻す。
	Create(ctx context.Context, facility *model.Facility) error

	// Update は施設の全フィールドを更新し、updated_atを進める。
	// 対象が存在しない場合はfalseを返す。
	Update(ctx context.Context, facility *model.Facility) (bool, error)

	// Delete は指定IDの施設を削除する。対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id int64) (bool, error)

	// Stats は施設の総数とカテゴリ別件数を返す。
	Stats(ctx context.Context) (*model.FacilityStats, error)
}
