package store

import (
	"context"
	"fmt"
	"time"
)

// CreateUserParams はユーザー作成のパラメータ。
type CreateUserParams struct {
	// ID はユーザーの一意識別子（UUID）。
	ID string
	// Username はユーザー名。
	Username string
	// Email はメールアドレス。空でもよい。
	Email string
	// PasswordHash はbcryptでハッシュ化されたパスワード。
	PasswordHash string
}

// CreateUser は新しいユーザーを作成する。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.ID, arg.Username, arg.Email, arg.PasswordHash, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return nil
}

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	if err := q.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id); err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// GetUserByUsername はユーザー名でユーザーを取得する。
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	if err := q.db.GetContext(ctx, &u, "SELECT * FROM users WHERE username = ?", username); err != nil {
		return User{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return u, nil
}

// ListActiveUsersWithEmail はメールアドレスを持つ有効なユーザーを全て返す。
// 手動お知らせ送信の宛先解決に使用する。購読フラグは参照しない。
func (q *Queries) ListActiveUsersWithEmail(ctx context.Context) ([]User, error) {
	users := []User{}
	err := q.db.SelectContext(ctx, &users, `
		SELECT * FROM users
		WHERE is_active = 1 AND email != ''
		ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	return users, nil
}
