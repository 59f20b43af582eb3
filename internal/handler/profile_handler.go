package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/view"
)

// ProfileHandler はプロフィールとフォロー関係のHTTPハンドラー。
type ProfileHandler struct {
	*pages
	profiles ProfileServiceInterface
	follows  FollowServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(p *pages, profiles ProfileServiceInterface, follows FollowServiceInterface) *ProfileHandler {
	return &ProfileHandler{pages: p, profiles: profiles, follows: follows}
}

// Profile はユーザーのプロフィールと投稿を表示する。
// GET /{username}/
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request, actor *model.User) {
	prof, err := h.profiles.Profile(r.Context(), actor, chi.URLParam(r, "username"), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PageProfile, view.ProfileContent{Profile: prof})
}

// Follow は著者をフォローしてプロフィールへリダイレクトする。
// GET /{username}/follow/
func (h *ProfileHandler) Follow(w http.ResponseWriter, r *http.Request, actor *model.User) {
	username := chi.URLParam(r, "username")
	if _, err := h.follows.Follow(r.Context(), actor, username); err != nil {
		h.fail(w, r, actor, err)
		return
	}
	http.Redirect(w, r, "/"+username+"/", http.StatusFound)
}

// Unfollow は著者のフォローを解除してプロフィールへリダイレクトする。
// GET /{username}/unfollow/
func (h *ProfileHandler) Unfollow(w http.ResponseWriter, r *http.Request, actor *model.User) {
	username := chi.URLParam(r, "username")
	if _, err := h.follows.Unfollow(r.Context(), actor, username); err != nil {
		h.fail(w, r, actor, err)
		return
	}
	http.Redirect(w, r, "/"+username+"/", http.StatusFound)
}

// FollowIndex はフォロー中の著者の投稿を表示する。
// GET /follow/
func (h *ProfileHandler) FollowIndex(w http.ResponseWriter, r *http.Request, actor *model.User) {
	posts, err := h.follows.Feed(r.Context(), actor, r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PageFollow, view.PostListContent{Posts: posts})
}
