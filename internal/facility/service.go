// Package facility は施設CRUDのビジネスロジックを提供する。
package facility

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hitoshi/fasilmap/internal/model"
	"github.com/hitoshi/fasilmap/internal/repository"
	"github.com/hitoshi/fasilmap/internal/upload"
	"github.com/hitoshi/fasilmap/internal/validation"
)

// PhotoStore は施設写真のライフサイクル操作のインターフェース。
// upload.PhotoStoreの部分集合として定義する。
type PhotoStore interface {
	Save(file io.Reader) (string, error)
	ImportFromURL(ctx context.Context, rawURL string) (string, error)
	Delete(filename string) error
}

// Service は施設CRUDのビジネスロジックを提供する。
type Service struct {
	repo      repository.FacilityRepository
	photos    PhotoStore
	validator *validation.Validator
}

// NewService はServiceを生成する。
func NewService(repo repository.FacilityRepository, photos PhotoStore) *Service {
	return &Service{
		repo:      repo,
		photos:    photos,
		validator: validation.New(),
	}
}

// categoryCallback はカテゴリ列挙値の検証コールバック。
func categoryCallback(value any) string {
	s, _ := value.(string)
	if !model.IsValidCategory(s) {
		values := make([]string, 0, len(model.CategoryMetadata()))
		for _, m := range model.CategoryMetadata() {
			values = append(values, string(m.Value))
		}
		return fmt.Sprintf("category must be one of: %s", strings.Join(values, ", "))
	}
	return ""
}

// latitudeCallback は緯度範囲の検証コールバック。
func latitudeCallback(value any) string {
	f, _ := value.(float64)
	if !model.ValidLatitude(f) {
		return "latitude must be between -90 and 90"
	}
	return ""
}

// longitudeCallback は経度範囲の検証コールバック。
func longitudeCallback(value any) string {
	f, _ := value.(float64)
	if !model.ValidLongitude(f) {
		return "longitude must be between -180 and 180"
	}
	return ""
}

// fieldRules は施設フィールドの検証ルール定義。
// requiredフラグは作成時のみ適用され、部分更新では存在するフィールドだけが
// 任意項目として検証される。
func fieldRules(required bool) map[string]validation.Rule {
	return map[string]validation.Rule{
		"name":        {Required: required, Type: validation.TypeString, MinLength: 3, MaxLength: 150},
		"address":     {Type: validation.TypeString, MaxLength: 255},
		"description": {Type: validation.TypeString, MaxLength: 1000},
		"latitude":    {Required: required, Type: validation.TypeFloat, Callback: latitudeCallback},
		"longitude":   {Required: required, Type: validation.TypeFloat, Callback: longitudeCallback},
		"category":    {Required: required, Type: validation.TypeString, Callback: categoryCallback},
		"photo_url":   {Type: validation.TypeString, MaxLength: 2048},
	}
}

// List はフィルタ条件に合致する施設一覧を返す。
func (s *Service) List(ctx context.Context, filter repository.FacilityFilter) ([]*model.Facility, error) {
	facilities, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}
	return facilities, nil
}

// Get は指定IDの施設を返す。見つからない場合はnilを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Facility, error) {
	facility, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get facility: %w", err)
	}
	return facility, nil
}

// Stats は施設の総数とカテゴリ別件数を返す。
func (s *Service) Stats(ctx context.Context) (*model.FacilityStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get facility stats: %w", err)
	}
	return stats, nil
}

// Categories は全カテゴリの表示メタデータを返す。
func (s *Service) Categories() []model.CategoryMeta {
	return model.CategoryMetadata()
}

// Create は入力を検証して施設を作成する。
// photoが非nilの場合はアップロードされた写真を保存し、
// photoがnilでphoto_urlが指定されている場合は外部URLから取り込む。
// バリデーション失敗は全フィールドのエラーを累積した*model.APIErrorを返す。
func (s *Service) Create(ctx context.Context, fields map[string]any, photo io.Reader) (*model.Facility, error) {
	result := s.validator.Validate(fields, fieldRules(true))
	if !result.Valid {
		return nil, model.NewValidationError(result.Errors)
	}

	facility := &model.Facility{
		Name:        stringField(result.Data, "name"),
		Address:     stringField(result.Data, "address"),
		Description: stringField(result.Data, "description"),
		Latitude:    floatField(result.Data, "latitude"),
		Longitude:   floatField(result.Data, "longitude"),
		Category:    model.Category(stringField(result.Data, "category")),
	}

	filename, err := s.storePhoto(ctx, photo, stringField(result.Data, "photo_url"))
	if err != nil {
		return nil, err
	}
	facility.PhotoFilename = filename

	if err := s.repo.Create(ctx, facility); err != nil {
		// 施設レコードが作れなかった写真は孤児になるため削除する
		if filename != "" {
			_ = s.photos.Delete(filename)
		}
		return nil, fmt.Errorf("failed to create facility: %w", err)
	}

	return facility, nil
}

// Update は指定IDの施設を部分更新する。
// 入力に存在するフィールドのみを検証・反映し、新しい写真が指定された場合は
// 旧ファイルを削除して差し替える。対象が存在しない場合はnilを返す。
func (s *Service) Update(ctx context.Context, id int64, fields map[string]any, photo io.Reader) (*model.Facility, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load facility for update: %w", err)
	}
	if existing == nil {
		return nil, nil
	}

	// 部分更新: 入力に存在するフィールドのみ検証する
	rules := map[string]validation.Rule{}
	for name, rule := range fieldRules(false) {
		if _, ok := fields[name]; ok {
			rules[name] = rule
		}
	}

	result := s.validator.Validate(fields, rules)
	if !result.Valid {
		return nil, model.NewValidationError(result.Errors)
	}

	if v, ok := result.Data["name"]; ok && v != nil {
		existing.Name = v.(string)
	}
	if v, ok := result.Data["address"]; ok && v != nil {
		existing.Address = v.(string)
	}
	if v, ok := result.Data["description"]; ok && v != nil {
		existing.Description = v.(string)
	}
	if v, ok := result.Data["latitude"]; ok && v != nil {
		existing.Latitude = v.(float64)
	}
	if v, ok := result.Data["longitude"]; ok && v != nil {
		existing.Longitude = v.(float64)
	}
	if v, ok := result.Data["category"]; ok && v != nil {
		existing.Category = model.Category(v.(string))
	}

	oldPhoto := existing.PhotoFilename
	newPhoto, err := s.storePhoto(ctx, photo, stringField(result.Data, "photo_url"))
	if err != nil {
		return nil, err
	}
	if newPhoto != "" {
		existing.PhotoFilename = newPhoto
	}

	updated, err := s.repo.Update(ctx, existing)
	if err != nil {
		if newPhoto != "" {
			_ = s.photos.Delete(newPhoto)
		}
		return nil, fmt.Errorf("failed to update facility: %w", err)
	}
	if !updated {
		if newPhoto != "" {
			_ = s.photos.Delete(newPhoto)
		}
		return nil, nil
	}

	// 差し替え成功後に旧ファイルを削除する
	if newPhoto != "" && oldPhoto != "" && oldPhoto != newPhoto {
		if err := s.photos.Delete(oldPhoto); err != nil {
			return nil, fmt.Errorf("failed to delete replaced photo: %w", err)
		}
	}

	return existing, nil
}

// Delete は指定IDの施設と、紐づく写真ファイルを削除する。
// 対象が存在しない場合はfalseを返す。
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to load facility for delete: %w", err)
	}
	if existing == nil {
		return false, nil
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete facility: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if err := s.photos.Delete(existing.PhotoFilename); err != nil {
		return true, fmt.Errorf("facility deleted but photo cleanup failed: %w", err)
	}

	return true, nil
}

// storePhoto はアップロードまたはURL取り込みで写真を保存し、ファイル名を返す。
// どちらも指定されていない場合は空文字列を返す。
// アップロード系の失敗は*model.APIError（400）に変換する。
func (s *Service) storePhoto(ctx context.Context, photo io.Reader, photoURL string) (string, error) {
	var filename string
	var err error

	switch {
	case photo != nil:
		filename, err = s.photos.Save(photo)
	case photoURL != "":
		filename, err = s.photos.ImportFromURL(ctx, photoURL)
	default:
		return "", nil
	}

	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnsupportedType):
			return "", model.NewUploadError("unsupported image type")
		case errors.Is(err, upload.ErrTooLarge):
			return "", model.NewUploadError("file exceeds maximum size")
		case errors.Is(err, upload.ErrFetchFailed):
			return "", model.NewUploadError("could not fetch photo from URL")
		default:
			return "", fmt.Errorf("failed to store photo: %w", err)
		}
	}

	return filename, nil
}

// stringField はバリデーション済みデータから文字列を取り出す。
func stringField(data map[string]any, name string) string {
	if v, ok := data[name]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// floatField はバリデーション済みデータから数値を取り出す。
func floatField(data map[string]any, name string) float64 {
	if v, ok := data[name]; ok && v != nil {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}
