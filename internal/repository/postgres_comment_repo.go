package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/yatube/internal/model"
)

// PostgresCommentRepo はPostgreSQLを使用したコメントリポジトリ。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// Create はコメントを作成し、採番したIDと作成日時を設定する。
func (r *PostgresCommentRepo) Create(ctx context.Context, comment *model.Comment) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (post_id, author_id, text)
		 VALUES ($1, $2, $3)
		 RETURNING id, created`,
		nullableInt64(comment.PostID), nullableInt64(comment.AuthorID), comment.Text,
	).Scan(&comment.ID, &comment.Created)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByPost は投稿のコメントを作成日時の降順で返す。
func (r *PostgresCommentRepo) ListByPost(ctx context.Context, postID int64) ([]*model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.author_id, c.text, c.created,
		        u.username, u.first_name, u.last_name
		 FROM comments c
		 LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = $1
		 ORDER BY c.created DESC, c.id DESC`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		var (
			c                     model.Comment
			pID, aID              sql.NullInt64
			username, first, last sql.NullString
		)
		if err := rows.Scan(&c.ID, &pID, &aID, &c.Text, &c.Created, &username, &first, &last); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		if pID.Valid {
			c.PostID = model.Int64Ptr(pID.Int64)
		}
		if aID.Valid {
			c.AuthorID = model.Int64Ptr(aID.Int64)
			c.Author = &model.User{
				ID:        aID.Int64,
				Username:  username.String,
				FirstName: first.String,
				LastName:  last.String,
			}
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// CountByPost は投稿のコメント数を返す。
func (r *PostgresCommentRepo) CountByPost(ctx context.Context, postID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM comments WHERE post_id = $1`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

// compile-time interface check
var _ CommentRepository = (*PostgresCommentRepo)(nil)
