// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/yatube/internal/model"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// CookieConfig はセッションCookieの属性。
type CookieConfig struct {
	Secure bool
	Domain string
	MaxAge int // 秒
}

// SetSessionCookie はセッションCookieを設定する。
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   cfg.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie はセッションCookieを削除する。
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID はリクエストのセッションIDを返す。Cookieがない場合は空文字列。
func SessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// ActorResolver はセッションIDから操作者を解決する。
// auth.ServiceのSessionUserを想定している。
type ActorResolver interface {
	SessionUser(ctx context.Context, sessionID string) (*model.User, error)
}

// ActorHandlerFunc は操作者を明示的な引数として受け取るハンドラー。
// 未ログインの場合actorはnil。
type ActorHandlerFunc func(w http.ResponseWriter, r *http.Request, actor *model.User)

// Actors はActorHandlerFuncをhttp.Handlerに変換するアダプター。
// 操作者はコンテキストに格納せず、ハンドラーの引数として渡す。
type Actors struct {
	resolver  ActorResolver
	loginPath string
	onError   func(w http.ResponseWriter, r *http.Request, err error)
}

// NewActors はActorsを生成する。onErrorがnilの場合は500をテキストで返す。
func NewActors(resolver ActorResolver, loginPath string, onError func(w http.ResponseWriter, r *http.Request, err error)) *Actors {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
	return &Actors{resolver: resolver, loginPath: loginPath, onError: onError}
}

// Optional は未ログインでも呼び出すハンドラーを返す。
func (a *Actors) Optional(h ActorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.resolve(r)
		if err != nil {
			a.onError(w, r, err)
			return
		}
		h(w, r, actor)
	}
}

// Required はログインを必須とするハンドラーを返す。
// 未ログインの場合は元のパスをnextに付けてログインページへリダイレクトする。
func (a *Actors) Required(h ActorHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.resolve(r)
		if err != nil {
			a.onError(w, r, err)
			return
		}
		if actor == nil {
			http.Redirect(w, r, LoginURL(a.loginPath, r.URL.RequestURI()), http.StatusFound)
			return
		}
		h(w, r, actor)
	}
}

func (a *Actors) resolve(r *http.Request) (*model.User, error) {
	sessionID := SessionID(r)
	if sessionID == "" {
		return nil, nil
	}
	actor, err := a.resolver.SessionUser(r.Context(), sessionID)
	if err != nil {
		slog.Error("failed to resolve session",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return actor, nil
}

// LoginURL はnextパラメータ付きのログインURLを返す。スラッシュはエスケープしない。
func LoginURL(loginPath, next string) string {
	return loginPath + "?next=" + strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
}

// SafeNext はリダイレクト先として安全な相対パスであればそれを返し、そうでなければfallbackを返す。
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}
