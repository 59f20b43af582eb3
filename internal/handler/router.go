package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/model"
	"github.com/hitoshi/yatube/internal/view"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Renderer *view.Renderer

	// ドメインサービス
	PostService    PostServiceInterface
	ProfileService ProfileServiceInterface
	FollowService  FollowServiceInterface
	AuthService    AuthServiceInterface

	// ミドルウェア依存
	Cookie      middleware.CookieConfig
	CSRF        middleware.CSRFConfig
	RateLimiter *middleware.RateLimiter // nilの場合はレート制限なし
	Logger      *slog.Logger
	Metrics     metrics.MetricsCollector
	// ImageSources はCSPのimg-srcに追加する画像配信元。
	ImageSources []string

	// トップページのキャッシュ。PageCacheがnilの場合はキャッシュしない。
	PageCache    cache.Store
	PageCacheTTL time.Duration

	// 運用エンドポイント
	HealthCheck    HealthChecker
	MetricsHandler http.Handler // nilの場合は/metricsを公開しない

	// ローカル保存した画像の配信。MediaRootが空の場合は配信しない。
	MediaRoot string
	MediaURL  string

	MaxUploadSize int64
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → Recovery → SecurityHeaders → Logging → Metrics → RateLimit(General, Write) → CSRF
//
// トップページのみページキャッシュを挟む。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.Nop{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &pages{renderer: deps.Renderer}
	actors := middleware.NewActors(deps.AuthService, loginPath, p.serverError)

	postHandler := NewPostHandler(p, deps.PostService, deps.MaxUploadSize)
	profileHandler := NewProfileHandler(p, deps.ProfileService, deps.FollowService)
	authHandler := NewAuthHandler(p, deps.AuthService, deps.Cookie)

	errorPage := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.render(w, r, nil, http.StatusInternalServerError, view.PageError, view.ErrorContent{Path: r.URL.Path})
	})

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(errorPage))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ImageSources...))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(collector))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(deps.RateLimiter.WriteMiddleware())
	}
	r.Use(middleware.NewCSRFMiddleware(deps.CSRF))

	r.NotFound(actors.Optional(func(w http.ResponseWriter, r *http.Request, actor *model.User) {
		p.notFound(w, r, actor)
	}))

	// --- 運用エンドポイント ---
	r.Get("/health", NewHealthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.MediaRoot != "" && deps.MediaURL != "" {
		prefix := "/" + strings.Trim(deps.MediaURL, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(deps.MediaRoot))))
	}

	// --- 認証 ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login/", actors.Optional(authHandler.Login))
		r.Post("/login/", actors.Optional(authHandler.Login))
		r.Get("/logout/", authHandler.Logout)
		r.Get("/signup/", actors.Optional(authHandler.Signup))
		r.Post("/signup/", actors.Optional(authHandler.Signup))
	})

	// --- 投稿 ---
	index := actors.Optional(postHandler.Index)
	if deps.PageCache != nil {
		r.With(cache.Middleware(cache.MiddlewareConfig{
			Store:       deps.PageCache,
			TTL:         deps.PageCacheTTL,
			VaryCookie:  middleware.SessionCookieName,
			QueryParams: []string{"page"},
			OnHit:       func() { collector.RecordPageCache(true) },
			OnMiss:      func() { collector.RecordPageCache(false) },
		})).Get("/", index)
	} else {
		r.Get("/", index)
	}

	r.Get("/new/", actors.Required(postHandler.NewPost))
	r.Post("/new/", actors.Required(postHandler.NewPost))
	r.Get("/follow/", actors.Required(profileHandler.FollowIndex))
	r.Get("/group/{slug}/", actors.Optional(postHandler.GroupPosts))

	// --- プロフィールと投稿詳細 ---
	r.Route("/{username}", func(r chi.Router) {
		r.Get("/", actors.Optional(profileHandler.Profile))
		r.Get("/follow/", actors.Required(profileHandler.Follow))
		r.Get("/unfollow/", actors.Required(profileHandler.Unfollow))

		r.Route("/{post_id}", func(r chi.Router) {
			r.Get("/", actors.Optional(postHandler.PostView))
			r.Get("/edit/", actors.Optional(postHandler.PostEdit))
			r.Post("/edit/", actors.Optional(postHandler.PostEdit))
			r.Post("/comment/", actors.Required(postHandler.AddComment))
		})
	})

	return r
}
