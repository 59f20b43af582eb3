package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatube/internal/model"
)

// PostgresFollowRepo はPostgreSQLを使用したフォローリポジトリ。
type PostgresFollowRepo struct {
	db *sql.DB
}

// NewPostgresFollowRepo はPostgresFollowRepoを生成する。
func NewPostgresFollowRepo(db *sql.DB) *PostgresFollowRepo {
	return &PostgresFollowRepo{db: db}
}

// Create は(userID, authorID)の関係が存在しない場合のみ作成する。
// 一意制約とON CONFLICT DO NOTHINGにより同時リクエストでも重複しない。
func (r *PostgresFollowRepo) Create(ctx context.Context, userID, authorID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (user_id, author_id) VALUES ($1, $2)
		 ON CONFLICT (user_id, author_id) DO NOTHING`,
		userID, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Delete は(userID, authorID)の関係が存在すれば削除する。
func (r *PostgresFollowRepo) Delete(ctx context.Context, userID, authorID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = $1 AND author_id = $2`,
		userID, authorID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// Exists は(userID, authorID)の関係が存在するかを返す。
func (r *PostgresFollowRepo) Exists(ctx context.Context, userID, authorID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = $1 AND author_id = $2)`,
		userID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}
	return exists, nil
}

// CountFollowers はauthorIDをフォローしているユーザー数を返す。
func (r *PostgresFollowRepo) CountFollowers(ctx context.Context, authorID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM follows WHERE author_id = $1 AND user_id IS NOT NULL`, authorID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return n, nil
}

// CountFollowing はuserIDがフォローしている著者数を返す。
func (r *PostgresFollowRepo) CountFollowing(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM follows WHERE user_id = $1 AND author_id IS NOT NULL`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return n, nil
}

// ListFollowedAuthors はuserIDがフォローしている著者をユーザー名順に返す。
func (r *PostgresFollowRepo) ListFollowedAuthors(ctx context.Context, userID int64) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+qualifiedUserColumns+`
		 FROM follows f
		 JOIN users u ON u.id = f.author_id
		 WHERE f.user_id = $1
		 ORDER BY u.username`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed authors: %w", err)
	}
	defer rows.Close()

	var authors []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors: %w", err)
	}
	return authors, nil
}

// compile-time interface check
var _ FollowRepository = (*PostgresFollowRepo)(nil)
