// Package store はSQLiteによる永続化層を提供する。
// クエリはQueriesオブジェクトに集約し、各コンポーネントへ注入する。
package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open はSQLiteデータベースを開き、未適用のマイグレーションを実行する。
// pathには ":memory:"（テスト用）またはファイルパスを指定する。
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	// SQLiteは単一ライターのため接続を1本に制限する
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("WALモードの有効化に失敗: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("外部キー制約の有効化に失敗: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("busy_timeoutの設定に失敗: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("マイグレーションに失敗: %w", err)
	}

	return db, nil
}

// Queries はデータベースへのクエリ実行オブジェクト。
type Queries struct {
	// db はSQLiteデータベース接続。
	db *sqlx.DB
}

// New は新しいQueriesを生成する。
func New(db *sqlx.DB) *Queries {
	return &Queries{db: db}
}
