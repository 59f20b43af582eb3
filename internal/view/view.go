// Package view は埋め込みテンプレートによるHTMLレンダリングを提供する。
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/hitoshi/yatube/internal/form"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/pagination"
	"github.com/hitoshi/yatube/internal/post"
	"github.com/hitoshi/yatube/internal/user"
)

//go:embed templates
var templateFS embed.FS

// ページテンプレート名
const (
	PageIndex    = "index"
	PageGroup    = "group"
	PagePostForm = "post_form"
	PageProfile  = "profile"
	PagePost     = "post"
	PageComments = "comments"
	PageFollow   = "follow"
	PageLogin    = "login"
	PageSignup   = "signup"
	PageNotFound = "404"
	PageError    = "500"
)

// MediaURLs は画像キーから公開URLを組み立てる。media.Serviceが満たす。
type MediaURLs interface {
	URL(key string) string
	ThumbnailURL(key string) string
}

// Data は全ページ共通のテンプレートデータ。
// ContentにはページごとのContent型を格納する。
type Data struct {
	Title     string
	User      *model.User // 閲覧者。未ログインはnil
	CSRFToken string
	Path      string
	Query     url.Values
	Content   any
}

// PostListContent は投稿一覧ページ（トップ、フォロー中）の内容。
type PostListContent struct {
	Posts *pagination.Result[*model.Post]
}

// GroupContent はグループページの内容。
type GroupContent struct {
	Feed *post.GroupFeed
}

// PostFormContent は投稿作成・編集フォームの内容。
// Postが設定されている場合は編集フォームとして表示する。
type PostFormContent struct {
	Form   form.PostInput
	Image  string // 編集中の投稿の現在の画像キー
	Errors form.Errors
	Groups []*model.Group
	Post   *model.Post
}

// ProfileContent はプロフィールページの内容。
type ProfileContent struct {
	Profile *user.Profile
}

// PostContent は投稿詳細ページの内容。
type PostContent struct {
	View   *post.PostView
	Form   form.CommentInput
	Errors form.Errors
}

// CommentsContent はコメント投稿に失敗した際のフォーム再表示の内容。
type CommentsContent struct {
	Post   *model.Post
	Form   form.CommentInput
	Errors form.Errors
}

// LoginContent はログインページの内容。
type LoginContent struct {
	Form   form.LoginInput
	Errors form.Errors
	Next   string
}

// SignupContent はユーザー登録ページの内容。
type SignupContent struct {
	Form   form.SignupInput
	Errors form.Errors
}

// ErrorContent はエラーページの内容。
type ErrorContent struct {
	Path string
}

// Renderer はページ名ごとに解析済みのテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートをすべて解析してRendererを生成する。
func NewRenderer(media MediaURLs) (*Renderer, error) {
	funcs := templateFuncs(media)

	entries, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(path.Base(entry), ".html")
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/base.html",
			"templates/partials/*.html",
			entry,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render はページをバッファに描画してからステータスコードとともに書き出す。
// 描画に失敗した場合は500をテキストで返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Data) {
	tmpl, ok := r.pages[page]
	if !ok {
		slog.Error("template not found", slog.String("page", page))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func templateFuncs(media MediaURLs) template.FuncMap {
	return template.FuncMap{
		"mediaURL": func(key string) string {
			if media == nil {
				return ""
			}
			return media.URL(key)
		},
		"thumbURL": func(key string) string {
			if media == nil {
				return ""
			}
			return media.ThumbnailURL(key)
		},
		"postPath": post.PostPath,
		"pageURL":  pageURL,
		"lines": func(s string) []string {
			return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
		},
		"date": func(p *model.Post) string {
			return p.PubDate.Format("2006年1月2日 15:04")
		},
		"selected": func(groupID int64, value string) bool {
			return strconv.FormatInt(groupID, 10) == value
		},
		"dict": dict,
	}
}

// dict はキーと値を交互に並べた引数からmapを作る。部分テンプレートへの受け渡しに使う。
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// pageURL はクエリの他のパラメータを保ったままpageを差し替えたURLを返す。
func pageURL(q url.Values, number int) string {
	values := url.Values{}
	for k, v := range q {
		values[k] = v
	}
	values.Set("page", strconv.Itoa(number))
	return "?" + values.Encode()
}
