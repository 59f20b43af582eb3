// Package user はプロフィール表示とユーザー削除のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/pagination"
	"github.com/hitoshi/yatube/internal/repository"
)

// ImageRemover は投稿画像の削除インターフェース。
type ImageRemover interface {
	Remove(ctx context.Context, key string) error
}

// Profile はプロフィールページの表示内容。
type Profile struct {
	model.AuthorStats
	Posts           *pagination.Result[*model.Post]
	FollowedAuthors []*model.User // このユーザーがフォローしている著者
	Following       bool          // 閲覧者がこのユーザーをフォローしているか
	IsSelf          bool          // 閲覧者本人のプロフィールか
}

// Service はユーザーに関するサービス層。
type Service struct {
	users   repository.UserRepository
	posts   repository.PostRepository
	follows repository.FollowRepository
	images  ImageRemover
	perPage int
}

// NewService はServiceの新しいインスタンスを生成する。
// imagesがnilの場合、削除時に画像ファイルは残る。
func NewService(store *repository.Store, images ImageRemover, perPage int) *Service {
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	return &Service{
		users:   store.Users,
		posts:   store.Posts,
		follows: store.Follows,
		images:  images,
		perPage: perPage,
	}
}

// Stats は著者の投稿数、フォロワー数、フォロー数を集計する。
func Stats(ctx context.Context, posts repository.PostRepository, follows repository.FollowRepository, author *model.User) (*model.AuthorStats, error) {
	postCount, err := posts.CountByAuthor(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	followers, err := follows.CountFollowers(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}
	following, err := follows.CountFollowing(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count following: %w", err)
	}
	return &model.AuthorStats{
		Author:         author,
		PostCount:      postCount,
		FollowerCount:  followers,
		FollowingCount: following,
	}, nil
}

// Profile はusernameのプロフィールを返す。actorは未ログインの場合nil。
func (s *Service) Profile(ctx context.Context, actor *model.User, username, rawPage string) (*Profile, error) {
	author, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError(username)
	}

	stats, err := Stats(ctx, s.posts, s.follows, author)
	if err != nil {
		return nil, err
	}

	posts, err := pagination.Load(rawPage, stats.PostCount, s.perPage, func(limit, offset int) ([]*model.Post, error) {
		return s.posts.ListByAuthor(ctx, author.ID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	followed, err := s.follows.ListFollowedAuthors(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followed authors: %w", err)
	}

	profile := &Profile{
		AuthorStats:     *stats,
		Posts:           posts,
		FollowedAuthors: followed,
	}
	if actor != nil {
		profile.IsSelf = actor.ID == author.ID
		if !profile.IsSelf {
			profile.Following, err = s.follows.Exists(ctx, actor.ID, author.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check follow: %w", err)
			}
		}
	}
	return profile, nil
}

// Delete はユーザーを削除する。
// 投稿・コメント・セッションは削除し、フォロー関係の参照は空にする。
// 投稿画像はデータベースからの削除後に取り除く。
func (s *Service) Delete(ctx context.Context, username string) error {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError(username)
	}

	slog.Info("deleting user",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	images, err := s.imageKeys(ctx, user.ID)
	if err != nil {
		return err
	}

	deleted, err := s.users.DeleteByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !deleted {
		return model.NewUserNotFoundError(username)
	}

	if s.images != nil {
		for _, key := range images {
			if err := s.images.Remove(ctx, key); err != nil {
				slog.Warn("failed to remove image",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	slog.Info("user deleted",
		slog.Int64("user_id", user.ID),
		slog.Int("images", len(images)),
	)
	return nil
}

// imageKeys はユーザーの投稿に添付された画像のキーを返す。
func (s *Service) imageKeys(ctx context.Context, userID int64) ([]string, error) {
	count, err := s.posts.CountByAuthor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	if count == 0 {
		return nil, nil
	}
	posts, err := s.posts.ListByAuthor(ctx, userID, count, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	var keys []string
	for _, p := range posts {
		if p.Image != "" {
			keys = append(keys, p.Image)
		}
	}
	return keys, nil
}
