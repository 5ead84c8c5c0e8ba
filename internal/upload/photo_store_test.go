package upload

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/fasilmap/internal/security"
)

// pngHeader は最小のPNGシグネチャ＋ダミーデータ。
// http.DetectContentTypeがimage/pngと判定する。
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

// jpegHeader はJPEGシグネチャ＋ダミーデータ。
var jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F', 0}

func newTestStore(t *testing.T) *PhotoStore {
	t.Helper()

	store, err := NewPhotoStore(t.TempDir(), 1024, security.NewURLGuard())
	if err != nil {
		t.Fatalf("NewPhotoStore() error = %v", err)
	}
	return store
}

// PNGの保存とUUIDベースのファイル名生成を検証
func TestPhotoStore_SavePNG(t *testing.T) {
	store := newTestStore(t)

	filename, err := store.Save(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasSuffix(filename, ".png") {
		t.Errorf("filename = %q, want .png suffix", filename)
	}
	if !store.Exists(filename) {
		t.Error("saved file should exist")
	}

	// 同じ内容でも毎回異なるファイル名になる
	filename2, err := store.Save(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filename == filename2 {
		t.Error("filenames should be collision-resistant")
	}
}

// JPEGが.jpg拡張子で保存されることを検証
func TestPhotoStore_SaveJPEG(t *testing.T) {
	store := newTestStore(t)

	filename, err := store.Save(bytes.NewReader(jpegHeader))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasSuffix(filename, ".jpg") {
		t.Errorf("filename = %q, want .jpg suffix", filename)
	}
}

// 許可リスト外の形式が拒否されることを検証
func TestPhotoStore_SaveUnsupportedType(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"plain text", []byte("this is not an image at all")},
		{"html", []byte("<html><body>x</body></html>")},
		{"empty", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(bytes.NewReader(tt.data))
			if !errors.Is(err, ErrUnsupportedType) {
				t.Errorf("Save() error = %v, want ErrUnsupportedType", err)
			}
		})
	}
}

// サイズ上限超過が拒否されることを検証
func TestPhotoStore_SaveTooLarge(t *testing.T) {
	store := newTestStore(t)

	big := append(append([]byte{}, pngHeader...), make([]byte, 2048)...)
	_, err := store.Save(bytes.NewReader(big))
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Save() error = %v, want ErrTooLarge", err)
	}
}

// 削除が冪等であることを検証
func TestPhotoStore_Delete(t *testing.T) {
	store := newTestStore(t)

	filename, err := store.Save(bytes.NewReader(pngHeader))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Delete(filename); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists(filename) {
		t.Error("file should be removed")
	}

	// 存在しないファイルの削除はエラーにならない
	if err := store.Delete(filename); err != nil {
		t.Errorf("Delete() of missing file error = %v, want nil", err)
	}
	if err := store.Delete(""); err != nil {
		t.Errorf("Delete() of empty filename error = %v, want nil", err)
	}
}

// パストラバーサルがベース名に丸められることを検証
func TestPhotoStore_DeletePathTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewPhotoStore(filepath.Join(dir, "uploads"), 1024, security.NewURLGuard())
	if err != nil {
		t.Fatalf("NewPhotoStore() error = %v", err)
	}

	// アップロードディレクトリ外のファイル
	outside := filepath.Join(dir, "secret.txt")
	if err := os.WriteFile(outside, []byte("secret"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	if err := store.Delete("../secret.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Error("file outside the upload directory must not be deleted")
	}
}

// 危険なURLからの取り込みが拒否されることを検証
func TestPhotoStore_ImportFromURL_Blocked(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ImportFromURL(context.Background(), "http://169.254.169.254/latest/meta-data/")
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("ImportFromURL() error = %v, want ErrFetchFailed", err)
	}
}
