// Package follow は著者のフォロー・フォロー解除とフォロー中フィードを提供する。
package follow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/pagination"
	"github.com/hitoshi/yatube/internal/repository"
)

// Service はフォロー関係のサービス層。
// 作成・削除はリポジトリの原子的な操作に委ね、事前の存在確認は行わない。
type Service struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
	metrics metrics.MetricsCollector
	perPage int
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store *repository.Store, collector metrics.MetricsCollector, perPage int) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	return &Service{
		users:   store.Users,
		posts:   store.Posts,
		follows: store.Follows,
		metrics: collector,
		perPage: perPage,
	}
}

// Follow はactorがusernameをフォローする。
// 自分自身へのフォローと既存の関係は何もせず成功として扱う。
func (s *Service) Follow(ctx context.Context, actor *model.User, username string) (*model.User, error) {
	if actor == nil {
		return nil, model.NewLoginRequiredError()
	}
	author, err := s.findAuthor(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == actor.ID {
		return author, nil
	}

	created, err := s.follows.Create(ctx, actor.ID, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create follow: %w", err)
	}
	if created {
		s.metrics.RecordFollowChange("follow")
		slog.Info("follow created",
			slog.Int64("user_id", actor.ID),
			slog.Int64("author_id", author.ID),
		)
	}
	return author, nil
}

// Unfollow はactorによるusernameのフォローを解除する。関係がなければ何もしない。
func (s *Service) Unfollow(ctx context.Context, actor *model.User, username string) (*model.User, error) {
	if actor == nil {
		return nil, model.NewLoginRequiredError()
	}
	author, err := s.findAuthor(ctx, username)
	if err != nil {
		return nil, err
	}

	deleted, err := s.follows.Delete(ctx, actor.ID, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete follow: %w", err)
	}
	if deleted {
		s.metrics.RecordFollowChange("unfollow")
		slog.Info("follow deleted",
			slog.Int64("user_id", actor.ID),
			slog.Int64("author_id", author.ID),
		)
	}
	return author, nil
}

// Feed はactorがフォローしている著者の投稿を新しい順に返す。
func (s *Service) Feed(ctx context.Context, actor *model.User, rawPage string) (*pagination.Result[*model.Post], error) {
	if actor == nil {
		return nil, model.NewLoginRequiredError()
	}
	count, err := s.posts.CountFollowedBy(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followed posts: %w", err)
	}
	result, err := pagination.Load(rawPage, count, s.perPage, func(limit, offset int) ([]*model.Post, error) {
		return s.posts.ListFollowedBy(ctx, actor.ID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list followed posts: %w", err)
	}
	return result, nil
}

func (s *Service) findAuthor(ctx context.Context, username string) (*model.User, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(username)
	}
	return author, nil
}
