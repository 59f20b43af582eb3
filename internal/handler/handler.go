// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/pagination"
	"github.com/hitoshi/yatube/internal/post"
	"github.com/hitoshi/yatube/internal/user"
	"github.com/hitoshi/yatube/internal/view"
)

// PostServiceInterface は投稿ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	Index(ctx context.Context, rawPage string) (*pagination.Result[*model.Post], error)
	GroupFeed(ctx context.Context, slug, rawPage string) (*post.GroupFeed, error)
	Groups(ctx context.Context) ([]*model.Group, error)
	Create(ctx context.Context, actor *model.User, in form.PostInput) (*model.Post, error)
	View(ctx context.Context, username, rawPostID string) (*post.PostView, error)
	Edit(ctx context.Context, actor *model.User, rawPostID string, in *form.PostInput) (*model.Post, error)
	AddComment(ctx context.Context, actor *model.User, rawPostID string, in form.CommentInput) (*model.Comment, error)
}

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	Profile(ctx context.Context, actor *model.User, username, rawPage string) (*user.Profile, error)
}

// FollowServiceInterface はフォローハンドラーが必要とするサービスインターフェース。
type FollowServiceInterface interface {
	Follow(ctx context.Context, actor *model.User, username string) (*model.User, error)
	Unfollow(ctx context.Context, actor *model.User, username string) (*model.User, error)
	Feed(ctx context.Context, actor *model.User, rawPage string) (*pagination.Result[*model.Post], error)
}

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	middleware.ActorResolver
	Signup(ctx context.Context, in form.SignupInput) (*model.User, error)
	Login(ctx context.Context, in form.LoginInput) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

// pages はHTMLページの描画とエラーページへの振り分けを担う。
type pages struct {
	renderer *view.Renderer
}

// render は共通データを組み立ててページを描画する。
func (p *pages) render(w http.ResponseWriter, r *http.Request, actor *model.User, status int, page string, content any) {
	p.renderer.Render(w, status, page, view.Data{
		User:      actor,
		CSRFToken: middleware.CSRFToken(r),
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		Content:   content,
	})
}

// notFound は要求パスを表示する404ページを返す。
func (p *pages) notFound(w http.ResponseWriter, r *http.Request, actor *model.User) {
	p.render(w, r, actor, http.StatusNotFound, view.PageNotFound, view.ErrorContent{Path: r.URL.Path})
}

// serverError はエラーを記録して500ページを返す。
func (p *pages) serverError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	p.render(w, r, nil, http.StatusInternalServerError, view.PageError, view.ErrorContent{Path: r.URL.Path})
}

// fail はサービス層のエラーを分類してレスポンスを返す。
// 検証エラーと権限エラーは各ハンドラーで個別に処理すること。
func (p *pages) fail(w http.ResponseWriter, r *http.Request, actor *model.User, err error) {
	appErr, ok := model.AsAppError(err)
	if !ok {
		p.serverError(w, r, err)
		return
	}
	switch appErr.Kind {
	case model.KindNotFound:
		p.notFound(w, r, actor)
	case model.KindUnauthenticated:
		http.Redirect(w, r, middleware.LoginURL(loginPath, r.URL.RequestURI()), http.StatusFound)
	default:
		p.serverError(w, r, err)
	}
}

// validationErrors はerrが検証エラーであればフィールドエラーを返す。
func validationErrors(err error) (form.Errors, bool) {
	if !model.IsKind(err, model.KindValidation) {
		return nil, false
	}
	appErr, _ := model.AsAppError(err)
	return form.Errors(appErr.Fields), true
}
