// Package post は投稿の一覧・作成・表示・編集とコメント追加のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/pagination"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/security"
	"github.com/hitoshi/yatube/internal/user"
)

// DefaultGroupPostLimit はグループフィードに表示する投稿数の上限の既定値。
const DefaultGroupPostLimit = 12

// ImageStore は投稿画像の保存先インターフェース。
type ImageStore interface {
	Save(ctx context.Context, upload *media.Upload) (string, error)
	Remove(ctx context.Context, key string) error
}

// Config はServiceの設定。
type Config struct {
	PerPage        int
	GroupPostLimit int
}

// GroupFeed はグループページの表示内容。
type GroupFeed struct {
	Group *model.Group
	Posts *pagination.Result[*model.Post]
}

// PostView は投稿詳細ページの表示内容。
// Redirectが空でない場合、呼び出し側はそのパスへリダイレクトする。
type PostView struct {
	Post     *model.Post
	Stats    *model.AuthorStats
	Comments []*model.Comment
	Redirect string
}

// Service は投稿のサービス層。
type Service struct {
	store     *repository.Store
	images    ImageStore
	imageRule validation.Rule
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	config    Config
}

// NewService はServiceの新しいインスタンスを生成する。
// imagesがnilの場合、画像付きの投稿は受け付けない。
func NewService(
	store *repository.Store,
	images ImageStore,
	imageRule validation.Rule,
	sanitizer security.TextSanitizer,
	collector metrics.MetricsCollector,
	config Config,
) *Service {
	if config.PerPage <= 0 {
		config.PerPage = pagination.DefaultPerPage
	}
	if config.GroupPostLimit <= 0 {
		config.GroupPostLimit = DefaultGroupPostLimit
	}
	if sanitizer == nil {
		sanitizer = security.NewTextSanitizer()
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		store:     store,
		images:    images,
		imageRule: imageRule,
		sanitizer: sanitizer,
		metrics:   collector,
		config:    config,
	}
}

// PostPath は投稿詳細ページのパスを返す。
func PostPath(p *model.Post) string {
	return fmt.Sprintf("/%s/%d/", p.Author.Username, p.ID)
}

// Index は全投稿を新しい順にページ分割して返す。
func (s *Service) Index(ctx context.Context, rawPage string) (*pagination.Result[*model.Post], error) {
	count, err := s.store.Posts.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}
	result, err := pagination.Load(rawPage, count, s.config.PerPage, func(limit, offset int) ([]*model.Post, error) {
		return s.store.Posts.ListAll(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return result, nil
}

// GroupFeed はグループの新しい投稿を最大GroupPostLimit件まで取り出し、ページ分割して返す。
func (s *Service) GroupFeed(ctx context.Context, slug, rawPage string) (*GroupFeed, error) {
	group, err := s.store.Groups.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find group: %w", err)
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError(slug)
	}

	count, err := s.store.Posts.CountByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count group posts: %w", err)
	}
	count = min(count, s.config.GroupPostLimit)

	posts, err := pagination.Load(rawPage, count, s.config.PerPage, func(limit, offset int) ([]*model.Post, error) {
		return s.store.Posts.ListByGroup(ctx, group.ID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list group posts: %w", err)
	}
	return &GroupFeed{Group: group, Posts: posts}, nil
}

// Groups は投稿フォームの選択肢となるグループ一覧を返す。
func (s *Service) Groups(ctx context.Context) ([]*model.Group, error) {
	groups, err := s.store.Groups.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	return groups, nil
}

// Create はactorを著者として投稿を作成する。
func (s *Service) Create(ctx context.Context, actor *model.User, in form.PostInput) (*model.Post, error) {
	if actor == nil {
		return nil, model.NewLoginRequiredError()
	}

	text, groupID, err := s.validate(ctx, &in)
	if err != nil {
		return nil, err
	}

	p := &model.Post{Text: text, AuthorID: actor.ID, GroupID: groupID}
	if in.Image != nil {
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		p.Image = key
	}

	if err := s.store.Posts.Create(ctx, p); err != nil {
		s.removeImage(ctx, p.Image)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	p.Author = actor

	s.metrics.RecordPostCreated()
	slog.Info("post created",
		slog.Int64("post_id", p.ID),
		slog.Int64("author_id", actor.ID),
		slog.String("excerpt", p.Excerpt()),
		slog.Bool("image", p.Image != ""),
	)
	return p, nil
}

// View は投稿詳細を返す。
// パスのユーザー名が著者と異なる場合はRedirectに正規のパスを設定する。
func (s *Service) View(ctx context.Context, username, rawPostID string) (*PostView, error) {
	p, err := s.find(ctx, rawPostID)
	if err != nil {
		return nil, err
	}
	if p.Author.Username != username {
		return &PostView{Post: p, Redirect: PostPath(p)}, nil
	}

	stats, err := user.Stats(ctx, s.store.Posts, s.store.Follows, p.Author)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByPost(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return &PostView{Post: p, Stats: stats, Comments: comments}, nil
}

// Edit は投稿を編集する。inがnilの場合は権限を確認して現在の投稿を返す。
// 著者以外（未ログインを含む）はForbiddenを返す。
func (s *Service) Edit(ctx context.Context, actor *model.User, rawPostID string, in *form.PostInput) (*model.Post, error) {
	p, err := s.find(ctx, rawPostID)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.ID != p.AuthorID {
		return p, model.NewNotAuthorError(p.ID)
	}
	if in == nil {
		return p, nil
	}

	text, groupID, err := s.validate(ctx, in)
	if err != nil {
		return p, err
	}

	oldImage := p.Image
	switch {
	case in.Image != nil:
		key, err := s.saveImage(ctx, in.Image)
		if err != nil {
			return p, err
		}
		p.Image = key
	case in.ClearImage:
		p.Image = ""
	}
	p.Text = text
	p.GroupID = groupID

	if err := s.store.Posts.Update(ctx, p); err != nil {
		if p.Image != oldImage {
			s.removeImage(ctx, p.Image)
		}
		return p, fmt.Errorf("failed to update post: %w", err)
	}
	if p.Image != oldImage {
		s.removeImage(ctx, oldImage)
	}

	slog.Info("post updated",
		slog.Int64("post_id", p.ID),
		slog.String("excerpt", p.Excerpt()),
	)
	return p, nil
}

// AddComment はactorを著者として投稿にコメントを追加する。
func (s *Service) AddComment(ctx context.Context, actor *model.User, rawPostID string, in form.CommentInput) (*model.Comment, error) {
	if actor == nil {
		return nil, model.NewLoginRequiredError()
	}
	p, err := s.find(ctx, rawPostID)
	if err != nil {
		return nil, err
	}

	verr := in.Validate()
	fields, ok := form.FieldErrors(verr)
	if !ok {
		return nil, fmt.Errorf("failed to validate comment: %w", verr)
	}
	text := s.sanitizer.Sanitize(in.Text)
	if len(fields) == 0 && text == "" {
		fields.Add("text", form.MsgRequired)
	}
	if len(fields) > 0 {
		return nil, model.NewValidationError(fields)
	}

	c := &model.Comment{
		PostID:   model.Int64Ptr(p.ID),
		AuthorID: model.Int64Ptr(actor.ID),
		Text:     text,
	}
	if err := s.store.Comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	c.Author = actor

	s.metrics.RecordCommentCreated()
	slog.Info("comment created",
		slog.Int64("comment_id", c.ID),
		slog.Int64("post_id", p.ID),
		slog.Int64("author_id", actor.ID),
	)
	return c, nil
}

// Delete は投稿とそのコメントを削除し、添付画像を取り除く。
func (s *Service) Delete(ctx context.Context, postID int64) error {
	p, err := s.store.Posts.FindByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return model.NewPostNotFoundError(strconv.FormatInt(postID, 10))
	}

	deleted, err := s.store.Posts.DeleteByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if !deleted {
		return model.NewPostNotFoundError(strconv.FormatInt(postID, 10))
	}
	s.removeImage(ctx, p.Image)

	slog.Info("post deleted", slog.Int64("post_id", postID))
	return nil
}

// find は文字列のIDで投稿を取得する。数値でないIDは未検出として扱う。
func (s *Service) find(ctx context.Context, rawPostID string) (*model.Post, error) {
	id, err := strconv.ParseInt(rawPostID, 10, 64)
	if err != nil || id <= 0 {
		return nil, model.NewPostNotFoundError(rawPostID)
	}
	p, err := s.store.Posts.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if p == nil {
		return nil, model.NewPostNotFoundError(rawPostID)
	}
	return p, nil
}

// validate は投稿フォームを検証し、サニタイズ済みの本文とグループIDを返す。
func (s *Service) validate(ctx context.Context, in *form.PostInput) (string, *int64, error) {
	in.Normalize()
	if in.Image != nil && s.images == nil {
		return "", nil, fmt.Errorf("image uploads are not configured")
	}

	verr := in.Validate(s.imageRule)
	fields, ok := form.FieldErrors(verr)
	if !ok {
		return "", nil, fmt.Errorf("failed to validate post: %w", verr)
	}

	text := s.sanitizer.Sanitize(in.Text)
	if fields.Get("text") == "" && text == "" {
		fields.Add("text", form.MsgRequired)
	}

	var groupID *int64
	if in.Group != "" && fields.Get("group") == "" {
		id, _ := strconv.ParseInt(in.Group, 10, 64)
		g, err := s.store.Groups.FindByID(ctx, id)
		if err != nil {
			return "", nil, fmt.Errorf("failed to find group: %w", err)
		}
		if g == nil {
			fields.Add("group", form.MsgInvalidChoice)
		} else {
			groupID = model.Int64Ptr(g.ID)
		}
	}

	if len(fields) > 0 {
		return "", nil, model.NewValidationError(fields)
	}
	return text, groupID, nil
}

func (s *Service) saveImage(ctx context.Context, upload *media.Upload) (string, error) {
	key, err := s.images.Save(ctx, upload)
	if err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}
	return key, nil
}

// removeImage は画像を削除する。失敗はログに残して処理を続ける。
func (s *Service) removeImage(ctx context.Context, key string) {
	if key == "" || s.images == nil {
		return
	}
	if err := s.images.Remove(ctx, key); err != nil {
		slog.Warn("failed to remove image",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
