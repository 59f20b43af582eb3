package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/post"
	"github.com/hitoshi/yatube/internal/view"
)

// PostHandler は投稿とコメントのHTTPハンドラー。
type PostHandler struct {
	*pages
	service   PostServiceInterface
	maxUpload int64
}

// NewPostHandler はPostHandlerを生成する。
func NewPostHandler(p *pages, service PostServiceInterface, maxUpload int64) *PostHandler {
	return &PostHandler{pages: p, service: service, maxUpload: maxUpload}
}

// Index はトップページに全投稿を表示する。
// GET /
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request, actor *model.User) {
	posts, err := h.service.Index(r.Context(), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PageIndex, view.PostListContent{Posts: posts})
}

// GroupPosts はグループの投稿を表示する。
// GET /group/{slug}/
func (h *PostHandler) GroupPosts(w http.ResponseWriter, r *http.Request, actor *model.User) {
	feed, err := h.service.GroupFeed(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get("page"))
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PageGroup, view.GroupContent{Feed: feed})
}

// NewPost は投稿フォームの表示と投稿の作成を行う。
// GET/POST /new/
func (h *PostHandler) NewPost(w http.ResponseWriter, r *http.Request, actor *model.User) {
	content := view.PostFormContent{}

	if r.Method == http.MethodPost {
		in, err := parsePostInput(r, h.maxUpload)
		if err != nil {
			badForm(w, r, err)
			return
		}
		_, err = h.service.Create(r.Context(), actor, in)
		if err == nil {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		errs, ok := validationErrors(err)
		if !ok {
			h.fail(w, r, actor, err)
			return
		}
		in.Image = nil
		content.Form = in
		content.Errors = errs
	}

	h.renderPostForm(w, r, actor, content)
}

// PostView は投稿詳細を表示する。
// GET /{username}/{post_id}/
func (h *PostHandler) PostView(w http.ResponseWriter, r *http.Request, actor *model.User) {
	pv, err := h.service.View(r.Context(), chi.URLParam(r, "username"), chi.URLParam(r, "post_id"))
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	if pv.Redirect != "" {
		http.Redirect(w, r, pv.Redirect, http.StatusFound)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PagePost, view.PostContent{View: pv})
}

// PostEdit は投稿の編集フォームの表示と更新を行う。
// 著者以外は投稿詳細へリダイレクトする。
// GET/POST /{username}/{post_id}/edit/
func (h *PostHandler) PostEdit(w http.ResponseWriter, r *http.Request, actor *model.User) {
	rawID := chi.URLParam(r, "post_id")

	var in *form.PostInput
	if r.Method == http.MethodPost {
		parsed, err := parsePostInput(r, h.maxUpload)
		if err != nil {
			badForm(w, r, err)
			return
		}
		in = &parsed
	}

	p, err := h.service.Edit(r.Context(), actor, rawID, in)
	switch {
	case err == nil && in != nil:
		http.Redirect(w, r, post.PostPath(p), http.StatusFound)
		return
	case model.IsKind(err, model.KindForbidden):
		http.Redirect(w, r, post.PostPath(p), http.StatusFound)
		return
	}

	content := view.PostFormContent{Post: p}
	if err != nil {
		errs, ok := validationErrors(err)
		if !ok {
			h.fail(w, r, actor, err)
			return
		}
		in.Image = nil
		content.Form = *in
		content.Errors = errs
		content.Image = p.Image
	} else {
		content.Form = form.PostInput{Text: p.Text}
		if p.GroupID != nil {
			content.Form.Group = strconv.FormatInt(*p.GroupID, 10)
		}
		content.Image = p.Image
	}

	h.renderPostForm(w, r, actor, content)
}

// AddComment は投稿にコメントを追加する。
// 入力が不正な場合はコメントフォームを再表示する。
// POST /{username}/{post_id}/comment/
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request, actor *model.User) {
	username := chi.URLParam(r, "username")
	rawID := chi.URLParam(r, "post_id")

	in := form.CommentInput{Text: r.PostFormValue("text")}
	_, err := h.service.AddComment(r.Context(), actor, rawID, in)
	if err == nil {
		http.Redirect(w, r, "/"+username+"/"+rawID+"/", http.StatusFound)
		return
	}

	errs, ok := validationErrors(err)
	if !ok {
		h.fail(w, r, actor, err)
		return
	}
	pv, err := h.service.View(r.Context(), username, rawID)
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	if pv.Redirect != "" {
		http.Redirect(w, r, pv.Redirect, http.StatusFound)
		return
	}
	h.render(w, r, actor, http.StatusOK, view.PageComments, view.CommentsContent{
		Post:   pv.Post,
		Form:   in,
		Errors: errs,
	})
}

func (h *PostHandler) renderPostForm(w http.ResponseWriter, r *http.Request, actor *model.User, content view.PostFormContent) {
	groups, err := h.service.Groups(r.Context())
	if err != nil {
		h.fail(w, r, actor, err)
		return
	}
	content.Groups = groups
	h.render(w, r, actor, http.StatusOK, view.PagePostForm, content)
}
