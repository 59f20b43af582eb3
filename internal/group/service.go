// Package group はグループの作成・削除・一覧を提供する。
package group

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/repository"
)

// Service はグループのサービス層。
// スラッグは作成時にのみ設定され、更新する経路は持たない。
type Service struct {
	groups repository.GroupRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(groups repository.GroupRepository) *Service {
	return &Service{groups: groups}
}

// Create はグループを作成する。入力不正やスラッグ重複は検証エラーを返す。
func (s *Service) Create(ctx context.Context, in form.GroupInput) (*model.Group, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Description = strings.TrimSpace(in.Description)

	verr := in.Validate()
	errs, ok := form.FieldErrors(verr)
	if !ok {
		return nil, fmt.Errorf("failed to validate group: %w", verr)
	}
	if len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}

	g := &model.Group{Title: in.Title, Slug: in.Slug, Description: in.Description}
	if err := s.groups.Create(ctx, g); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateSlugError(in.Slug)
		}
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	slog.Info("group created",
		slog.Int64("group_id", g.ID),
		slog.String("slug", g.Slug),
	)
	return g, nil
}

// Delete はスラッグで指定したグループを削除する。所属していた投稿は残り、グループ未設定になる。
func (s *Service) Delete(ctx context.Context, slug string) error {
	deleted, err := s.groups.DeleteBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if !deleted {
		return model.NewGroupNotFoundError(slug)
	}
	slog.Info("group deleted", slog.String("slug", slug))
	return nil
}

// List は全グループを返す。
func (s *Service) List(ctx context.Context) ([]*model.Group, error) {
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}
