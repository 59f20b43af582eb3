package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した投稿リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// postSelect は投稿に著者とグループをJOINするSELECT句。
const postSelect = `
	SELECT p.id, p.text, p.pub_date, p.author_id, p.group_id, COALESCE(p.image, ''),
	       u.username, u.first_name, u.last_name,
	       g.title, g.slug, g.description
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN groups g ON g.id = p.group_id`

const postOrder = ` ORDER BY p.pub_date DESC, p.id DESC`

func scanPost(row rowScanner) (*model.Post, error) {
	p := &model.Post{Author: &model.User{}}
	var (
		groupID               sql.NullInt64
		groupTitle, groupSlug sql.NullString
		groupDesc             sql.NullString
	)
	err := row.Scan(&p.ID, &p.Text, &p.PubDate, &p.AuthorID, &groupID, &p.Image,
		&p.Author.Username, &p.Author.FirstName, &p.Author.LastName,
		&groupTitle, &groupSlug, &groupDesc)
	if err != nil {
		return nil, err
	}
	p.Author.ID = p.AuthorID
	if groupID.Valid {
		p.GroupID = model.Int64Ptr(groupID.Int64)
		p.Group = &model.Group{
			ID:          groupID.Int64,
			Title:       groupTitle.String,
			Slug:        groupSlug.String,
			Description: groupDesc.String,
		}
	}
	return p, nil
}

func nullableInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create は投稿を作成し、採番したIDと公開日時を設定する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (text, author_id, group_id, image)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, pub_date`,
		post.Text, post.AuthorID, nullableInt64(post.GroupID), nullableString(post.Image),
	).Scan(&post.ID, &post.PubDate)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

// Update は投稿の本文、グループ、画像を更新する。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET text = $1, group_id = $2, image = $3 WHERE id = $4`,
		post.Text, nullableInt64(post.GroupID), nullableString(post.Image), post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// FindByID は指定IDの投稿を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id int64) (*model.Post, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return post, nil
}

func (r *PostgresPostRepo) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

func (r *PostgresPostRepo) list(ctx context.Context, where string, args ...any) ([]*model.Post, error) {
	n := len(args)
	query := postSelect + where + postOrder + fmt.Sprintf(` LIMIT $%d OFFSET $%d`, n-1, n)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// CountAll は全投稿数を返す。
func (r *PostgresPostRepo) CountAll(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM posts`)
}

// ListAll は全投稿をlimit/offsetで切り出して返す。
func (r *PostgresPostRepo) ListAll(ctx context.Context, limit, offset int) ([]*model.Post, error) {
	return r.list(ctx, "", limit, offset)
}

// CountByGroup はグループに属する投稿数を返す。
func (r *PostgresPostRepo) CountByGroup(ctx context.Context, groupID int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM posts WHERE group_id = $1`, groupID)
}

// ListByGroup はグループに属する投稿を返す。
func (r *PostgresPostRepo) ListByGroup(ctx context.Context, groupID int64, limit, offset int) ([]*model.Post, error) {
	return r.list(ctx, ` WHERE p.group_id = $1`, groupID, limit, offset)
}

// CountByAuthor は著者の投稿数を返す。
func (r *PostgresPostRepo) CountByAuthor(ctx context.Context, authorID int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM posts WHERE author_id = $1`, authorID)
}

// ListByAuthor は著者の投稿を返す。
func (r *PostgresPostRepo) ListByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]*model.Post, error) {
	return r.list(ctx, ` WHERE p.author_id = $1`, authorID, limit, offset)
}

const followedAuthors = `SELECT f.author_id FROM follows f WHERE f.user_id = $1 AND f.author_id IS NOT NULL`

// CountFollowedBy はuserIDがフォローしている著者の投稿数を返す。
func (r *PostgresPostRepo) CountFollowedBy(ctx context.Context, userID int64) (int, error) {
	return r.count(ctx, `SELECT count(*) FROM posts WHERE author_id IN (`+followedAuthors+`)`, userID)
}

// ListFollowedBy はuserIDがフォローしている著者の投稿を返す。
func (r *PostgresPostRepo) ListFollowedBy(ctx context.Context, userID int64, limit, offset int) ([]*model.Post, error) {
	return r.list(ctx, ` WHERE p.author_id IN (`+followedAuthors+`)`, userID, limit, offset)
}

// DeleteByID は投稿とそのコメントを同一トランザクションで削除する。
func (r *PostgresPostRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete comments of post: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
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
var _ PostRepository = (*PostgresPostRepo)(nil)
