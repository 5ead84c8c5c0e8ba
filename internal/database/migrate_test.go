package database

import (
	"io/fs"
	"strings"
	"testing"
)

// 埋め込みマイグレーションにup/downのペアが揃っていることを検証
func TestMigrationsFS_UpDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		t.Fatalf("failed to read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no migration files embedded")
	}

	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected migration file name: %s", name)
		}
	}

	for base := range ups {
		if !downs[base] {
			t.Errorf("missing down migration for %s", base)
		}
	}
	for base := range downs {
		if !ups[base] {
			t.Errorf("missing up migration for %s", base)
		}
	}
}

// 初期マイグレーションが必要なテーブルを全て作成することを検証
func TestInitMigration_CreatesTables(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/0001_init.up.sql")
	if err != nil {
		t.Fatalf("failed to read init migration: %v", err)
	}
	sql := string(data)

	for _, table := range []string{"users", "facilities", "sessions", "rate_windows"} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Errorf("init migration should create table %s", table)
		}
	}
}

// Openが接続文字列を検証せずにハンドルを返すことを検証（lib/pqの仕様）
func TestOpen_ReturnsHandle(t *testing.T) {
	db, err := Open("postgres://localhost:5432/fasilmap?sslmode=disable")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()
	if db == nil {
		t.Fatal("expected non-nil db handle")
	}
}
