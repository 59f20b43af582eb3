package handler

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/view"
)

const loginPath = "/auth/login/"

// AuthHandler はログイン、ログアウト、ユーザー登録のHTTPハンドラー。
type AuthHandler struct {
	*pages
	service AuthServiceInterface
	cookie  middleware.CookieConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(p *pages, service AuthServiceInterface, cookie middleware.CookieConfig) *AuthHandler {
	return &AuthHandler{pages: p, service: service, cookie: cookie}
}

// Login はログインフォームの表示とログインを行う。
// 成功時は安全なnextがあればそこへ、なければトップへリダイレクトする。
// GET/POST /auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, actor *model.User) {
	content := view.LoginContent{Next: r.FormValue("next")}

	if r.Method == http.MethodPost {
		in := form.LoginInput{
			Username: r.PostFormValue("username"),
			Password: r.PostFormValue("password"),
		}
		session, err := h.service.Login(r.Context(), in)
		if err == nil {
			middleware.SetSessionCookie(w, h.cookie, session.ID)
			http.Redirect(w, r, middleware.SafeNext(content.Next, "/"), http.StatusFound)
			return
		}
		errs, ok := validationErrors(err)
		if !ok {
			h.fail(w, r, actor, err)
			return
		}
		in.Password = ""
		content.Form = in
		content.Errors = errs
	}

	h.render(w, r, actor, http.StatusOK, view.PageLogin, content)
}

// Logout はセッションを破棄してトップへリダイレクトする。
// GET /auth/logout/
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionID(r); sessionID != "" {
		if err := h.service.Logout(r.Context(), sessionID); err != nil {
			slog.Warn("failed to delete session", slog.String("error", err.Error()))
		}
	}
	middleware.ClearSessionCookie(w, h.cookie)
	http.Redirect(w, r, "/", http.StatusFound)
}

// Signup はユーザー登録フォームの表示と登録を行う。
// 成功時はログインページへリダイレクトする。
// GET/POST /auth/signup/
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request, actor *model.User) {
	content := view.SignupContent{}

	if r.Method == http.MethodPost {
		in := form.SignupInput{
			FirstName: r.PostFormValue("first_name"),
			LastName:  r.PostFormValue("last_name"),
			Username:  r.PostFormValue("username"),
			Email:     r.PostFormValue("email"),
			Password1: r.PostFormValue("password1"),
			Password2: r.PostFormValue("password2"),
		}
		_, err := h.service.Signup(r.Context(), in)
		if err == nil {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		errs, ok := validationErrors(err)
		if !ok {
			h.fail(w, r, actor, err)
			return
		}
		in.Password1, in.Password2 = "", ""
		content.Form = in
		content.Errors = errs
	}

	h.render(w, r, actor, http.StatusOK, view.PageSignup, content)
}
