// Package upload は施設写真のファイル保存を提供する。
//
// ファイル名は衝突耐性のあるUUIDベースで生成し、
// 写真のライフサイクル（作成・差し替え・削除）は施設レコードに従属する。
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/fasilmap/internal/security"
)

// ErrUnsupportedType は許可されていない画像形式を表す。
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrTooLarge はサイズ上限超過を表す。
var ErrTooLarge = errors.New("file exceeds maximum size")

// ErrFetchFailed はURL取り込み時の取得失敗を表す。
var ErrFetchFailed = errors.New("failed to fetch photo from URL")

// extByMIME は許可されるMIMEタイプと保存時の拡張子の対応。
// 形式の判定はファイル内容のスニッフィングで行い、拡張子は信用しない。
var extByMIME = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// fetchTimeout はURL取り込み時のHTTPタイムアウト。
const fetchTimeout = 10 * time.Second

// PhotoStore は写真ファイルの保存・削除・URL取り込みを提供する。
type PhotoStore struct {
	dir     string
	maxSize int64
	guard   security.URLGuardService
}

// NewPhotoStore はPhotoStoreを生成し、保存ディレクトリを作成する。
func NewPhotoStore(dir string, maxSize int64, guard security.URLGuardService) (*PhotoStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &PhotoStore{
		dir:     dir,
		maxSize: maxSize,
		guard:   guard,
	}, nil
}

// Save はアップロードされた写真を保存し、生成したファイル名を返す。
// 内容のスニッフィングで形式を判定し、許可リスト外の形式と
// サイズ上限超過を拒否する。
func (s *PhotoStore) Save(file io.Reader) (string, error) {
	// maxSize+1まで読むことで上限超過を検出する
	data, err := io.ReadAll(io.LimitReader(file, s.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrTooLarge
	}
	if len(data) == 0 {
		return "", ErrUnsupportedType
	}

	mime := http.DetectContentType(data)
	ext, ok := extByMIME[mime]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mime)
	}

	filename := uuid.New().String() + ext
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo file: %w", err)
	}

	return filename, nil
}

// ImportFromURL は外部URLから写真を取得して保存し、生成したファイル名を返す。
// URLはSSRFガードによる事前検証とDialerレベルの検証の両方を通過する必要がある。
func (s *PhotoStore) ImportFromURL(ctx context.Context, rawURL string) (string, error) {
	if err := s.guard.ValidateURL(rawURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	client := s.guard.NewSafeClient(fetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: unexpected status %d", ErrFetchFailed, resp.StatusCode)
	}

	return s.Save(resp.Body)
}

// Delete は保存済みの写真ファイルを削除する。
// ファイルが存在しない場合はエラーにしない。
// パストラバーサルを防ぐためファイル名のベース名のみを使用する。
func (s *PhotoStore) Delete(filename string) error {
	if filename == "" {
		return nil
	}

	path := filepath.Join(s.dir, filepath.Base(filename))
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete photo file: %w", err)
	}
	return nil
}

// Exists は写真ファイルが存在するかを返す。テストおよび整合性チェック用。
func (s *PhotoStore) Exists(filename string) bool {
	if filename == "" {
		return false
	}
	_, err := os.Stat(filepath.Join(s.dir, filepath.Base(filename)))
	return err == nil
}
