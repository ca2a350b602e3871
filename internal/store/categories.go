package store

import (
	"context"
	"fmt"
)

// CreateCategoryParams はカテゴリ作成のパラメータ。
type CreateCategoryParams struct {
	// ID はカテゴリの一意識別子（UUID）。
	ID string
	// Code はカテゴリの一意なコード。
	Code string
	// Title はカテゴリの表示名。
	Title string
}

// CreateCategory は新しいカテゴリを作成する。
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) error {
	_, err := q.db.ExecContext(ctx,
		"INSERT INTO categories (id, code, title) VALUES (?, ?, ?)",
		arg.ID, arg.Code, arg.Title,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの作成に失敗: %w", err)
	}
	return nil
}

// GetCategoryByID はIDでカテゴリを取得する。
func (q *Queries) GetCategoryByID(ctx context.Context, id string) (Category, error) {
	var c Category
	if err := q.db.GetContext(ctx, &c, "SELECT * FROM categories WHERE id = ?", id); err != nil {
		return Category{}, fmt.Errorf("カテゴリの取得に失敗: %w", err)
	}
	return c, nil
}

// ListCategories は全カテゴリをコード順に返す。
func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	categories := []Category{}
	if err := q.db.SelectContext(ctx, &categories, "SELECT * FROM categories ORDER BY code"); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗: %w", err)
	}
	return categories, nil
}
