package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/model"
)

// PostgresGroupRepo はPostgreSQLを使用したグループリポジトリ。
type PostgresGroupRepo struct {
	db *sql.DB
}

// NewPostgresGroupRepo はPostgresGroupRepoを生成する。
func NewPostgresGroupRepo(db *sql.DB) *PostgresGroupRepo {
	return &PostgresGroupRepo{db: db}
}

// Create はグループを作成し、採番したIDを設定する。
func (r *PostgresGroupRepo) Create(ctx context.Context, group *model.Group) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		group.Title, group.Slug, group.Description,
	).Scan(&group.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("failed to create group %q: %w", group.Slug, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

func (r *PostgresGroupRepo) findOne(ctx context.Context, where string, arg any) (*model.Group, error) {
	g := &model.Group{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM groups WHERE `+where, arg,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	return g, nil
}

// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindByID(ctx context.Context, id int64) (*model.Group, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindBySlug はスラッグでグループを検索する。見つからない場合はnilを返す。
func (r *PostgresGroupRepo) FindBySlug(ctx context.Context, slug string) (*model.Group, error) {
	return r.findOne(ctx, "slug = $1", slug)
}

// ListAll はタイトル順に全グループを返す。
func (r *PostgresGroupRepo) ListAll(ctx context.Context) ([]*model.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, slug, description FROM groups ORDER BY title, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*model.Group
	for rows.Next() {
		g := &model.Group{}
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// DeleteBySlug はグループを削除し、所属投稿のグループ参照をNULLにする。
func (r *PostgresGroupRepo) DeleteBySlug(ctx context.Context, slug string) (bool, error) {
	var deleted bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM groups WHERE slug = $1 FOR UPDATE`, slug).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock group: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET group_id = NULL WHERE group_id = $1`, id); err != nil {
			return fmt.Errorf("failed to detach posts from group: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// compile-time interface check
var _ GroupRepository = (*PostgresGroupRepo)(nil)
