package store

import (
	"embed"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

// migrationFS は埋め込みのマイグレーションSQLファイル。
// ファイル名形式: 000001_description.up.sql
//
//go:embed migrations/*.up.sql
var migrationFS embed.FS

// migrate は未適用のマイグレーションをバージョン順に適用する。
// 適用済みバージョンはschema_migrationsテーブルで管理する。
func migrate(db *sqlx.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`); err != nil {
		return fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("バージョンの読み取りに失敗: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("バージョンの読み取りに失敗: %w", err)
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("マイグレーションファイルの読み込みに失敗: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		version, err := strconv.Atoi(strings.SplitN(name, "_", 2)[0])
		if err != nil {
			return fmt.Errorf("マイグレーションファイル名が不正: %s", name)
		}
		if applied[version] {
			continue
		}

		content, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("マイグレーション %s の読み込みに失敗: %w", name, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("トランザクション開始に失敗: %w", err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("マイグレーション %s の適用に失敗: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("バージョン記録に失敗: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("マイグレーション %s のコミットに失敗: %w", name, err)
		}
		log.Printf("[Store] マイグレーション %s を適用しました", name)
	}

	return nil
}
