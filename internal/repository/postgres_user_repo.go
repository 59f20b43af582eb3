package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, username, email, first_name, last_name, password_hash, created_at`

const qualifiedUserColumns = `u.id, u.username, u.email, u.first_name, u.last_name, u.password_hash, u.created_at`

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Create はユーザーを作成し、採番したIDを設定する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, first_name, last_name, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		user.Username, user.Email, user.FirstName, user.LastName, user.PasswordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to create user %q: %w", user.Username, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by username: %w", err)
	}
	return user, nil
}

// DeleteByID は指定IDのユーザーと従属データを同一トランザクションで削除する。
// フォロー行は残し、参照のみNULLにする。
func (r *PostgresUserRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		stmts := []struct {
			query string
			step  string
		}{
			{`UPDATE follows SET user_id = NULL WHERE user_id = $1`, "nullify follower references"},
			{`UPDATE follows SET author_id = NULL WHERE author_id = $1`, "nullify author references"},
			{`DELETE FROM comments WHERE author_id = $1`, "delete comments by user"},
			{`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE author_id = $1)`, "delete comments on user's posts"},
			{`DELETE FROM posts WHERE author_id = $1`, "delete posts"},
			{`DELETE FROM sessions WHERE user_id = $1`, "delete sessions"},
		}
		for _, s := range stmts {
			if _, err := tx.ExecContext(ctx, s.query, id); err != nil {
				return fmt.Errorf("failed to %s: %w", s.step, err)
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
