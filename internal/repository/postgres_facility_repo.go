package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/fasilmap/internal/model"
)

// defaultListLimit は施設一覧のデフォルト取得件数。
const defaultListLimit = 100

// maxListLimit は施設一覧の取得件数上限。
const maxListLimit = 500

// PostgresFacilityRepo はPostgreSQLを使用した施設リポジトリ。
type PostgresFacilityRepo struct {
	db *sql.DB
}

// NewPostgresFacilityRepo はPostgresFacilityRepoを生成する。
func NewPostgresFacilityRepo(db *sql.DB) *PostgresFacilityRepo {
	return &PostgresFacilityRepo{db: db}
}

// FindByID は指定IDの施設を取得する。見つからない場合はnilを返す。
func (r *PostgresFacilityRepo) FindByID(ctx context.Context, id int64) (*model.Facility, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, photo_filename, address, description,
		        latitude, longitude, category, created_at, updated_at
		 FROM facilities WHERE id = $1`,
		id,
	)

	facility, err := scanFacility(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find facility by ID: %w", err)
	}

	return facility, nil
}

// List はフィルタ条件に合致する施設を作成日時降順で返す。
// カテゴリ絞り込み、名前・住所・説明への部分一致検索、
// limit/offsetによるページネーションに対応する。
func (r *PostgresFacilityRepo) List(ctx context.Context, filter FacilityFilter) ([]*model.Facility, error) {
	query := `SELECT id, name, photo_filename, address, description,
	                 latitude, longitude, category, created_at, updated_at
	          FROM facilities WHERE 1=1`
	args := []any{}

	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		query += fmt.Sprintf(
			" AND (name ILIKE $%d OR COALESCE(address, '') ILIKE $%d OR COALESCE(description, '') ILIKE $%d)",
			n, n, n,
		)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	defer rows.Close()

	facilities := []*model.Facility{}
	for rows.Next() {
		facility, err := scanFacility(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		facilities = append(facilities, facility)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facilities: %w", err)
	}

	return facilities, nil
}

// Create は施設を作成し、採番されたIDとタイムスタンプをfacilityに書き戻す。
func (r *PostgresFacilityRepo) Create(ctx context.Context, facility *model.Facility) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO facilities (name, photo_filename, address, description,
		                         latitude, longitude, category)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		facility.Name,
		nullable(facility.PhotoFilename),
		nullable(facility.Address),
		nullable(facility.Description),
		facility.Latitude, facility.Longitude, string(facility.Category),
	).Scan(&facility.ID, &facility.CreatedAt, &facility.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert facility: %w", err)
	}
	return nil
}

// Update は施設の全フィールドを更新し、updated_atを進める。
// 対象が存在しない場合はfalseを返す。
func (r *PostgresFacilityRepo) Update(ctx context.Context, facility *model.Facility) (bool, error) {
	err := r.db.QueryRowContext(ctx,
		`UPDATE facilities
		 SET name = $1, photo_filename = $2, address = $3, description = $4,
		     latitude = $5, longitude = $6, category = $7, updated_at = now()
		 WHERE id = $8
		 RETURNING updated_at`,
		facility.Name,
		nullable(facility.PhotoFilename),
		nullable(facility.Address),
		nullable(facility.Description),
		facility.Latitude, facility.Longitude, string(facility.Category),
		facility.ID,
	).Scan(&facility.UpdatedAt)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update facility: %w", err)
	}
	return true, nil
}

// Delete は指定IDの施設を削除する。対象が存在しない場合はfalseを返す。
func (r *PostgresFacilityRepo) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM facilities WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete facility: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// Stats は施設の総数とカテゴリ別件数を返す。
// カテゴリはメタデータの定義順で返し、0件のカテゴリも含める。
func (r *PostgresFacilityRepo) Stats(ctx context.Context) (*model.FacilityStats, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM facilities GROUP BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query facility stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.Category]int)
	total := 0
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan facility stats: %w", err)
		}
		counts[model.Category(category)] = count
		total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate facility stats: %w", err)
	}

	stats := &model.FacilityStats{Total: total}
	for _, meta := range model.CategoryMetadata() {
		stats.ByCategory = append(stats.ByCategory, model.CategoryStat{
			Category: meta.Value,
			Count:    counts[meta.Value],
		})
	}

	return stats, nil
}

// facilityScanner はsql.Rowとsql.Rowsの共通Scanインターフェース。
type facilityScanner interface {
	Scan(dest ...any) error
}

// scanFacility は1行を読み取ってFacilityに変換する。
// NULL許容カラムは空文字列として扱う。
func scanFacility(row facilityScanner) (*model.Facility, error) {
	facility := &model.Facility{}
	var photo, address, description sql.NullString
	var category string

	err := row.Scan(
		&facility.ID, &facility.Name, &photo, &address, &description,
		&facility.Latitude, &facility.Longitude, &category,
		&facility.CreatedAt, &facility.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	facility.PhotoFilename = photo.String
	facility.Address = address.String
	facility.Description = description.String
	facility.Category = model.Category(category)

	return facility, nil
}

// nullable は空文字列をNULLに変換する。
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// compile-time interface check
var _ FacilityRepository = (*PostgresFacilityRepo)(nil)
