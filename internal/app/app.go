package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hitoshi/yatube/internal/auth"
	"github.com/hitoshi/yatube/internal/config"
	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/follow"
	"github.com/hitoshi/yatube/internal/handler"
	"github.com/hitoshi/yatube/internal/logger"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/middleware"
	"github.com/hitoshi/yatube/internal/post"
	"github.com/hitoshi/yatube/internal/security"
	"github.com/hitoshi/yatube/internal/user"
	"github.com/hitoshi/yatube/internal/view"
	"github.com/hitoshi/yatube/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("storage", cfg.StorageType),
	)

	if isAdminCommand(cmd) {
		return runAdmin(context.Background(), cfg, cmd, args[1:], w)
	}

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg, args[1:])
	default:
		return runServe(cfg)
	}
}

// server はHTTPサーバーと終了時に解放するリソースをまとめたもの。
type server struct {
	handler http.Handler
	close   func()
}

// buildServer は全依存関係をワイヤリングし、ルーターを構築する。
func buildServer(ctx context.Context, cfg *config.Config) (*server, error) {
	log := slog.Default()

	// 1. ストレージ
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 2. 画像ストレージ
	images, err := newMedia(ctx, cfg, log)
	if err != nil {
		closeStore()
		return nil, err
	}

	// 3. ページキャッシュとメトリクス
	pc := newPageCache(cfg)
	registry, collector := newMetrics()

	// 4. ドメインサービス
	authService := auth.NewService(store.Users, store.Sessions, auth.ServiceConfig{
		SessionMaxAge: cfg.SessionMaxAge,
	})
	postService := post.NewService(
		store, images.service, media.NewValidator(cfg.UploadMaxSize),
		security.NewTextSanitizer(), collector,
		post.Config{PerPage: cfg.PostsPerPage, GroupPostLimit: cfg.GroupPostLimit},
	)
	profileService := user.NewService(store, images.service, cfg.PostsPerPage)
	followService := follow.NewService(store, collector, cfg.PostsPerPage)

	renderer, err := view.NewRenderer(images.service)
	if err != nil {
		pc.close()
		closeStore()
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     middleware.PerMinute(cfg.RateLimitGeneral),
		GeneralBurst:    cfg.RateLimitGeneral,
		WriteRate:       middleware.PerMinute(cfg.RateLimitWrite),
		WriteBurst:      cfg.RateLimitWrite,
		CleanupInterval: middleware.DefaultRateLimiterConfig().CleanupInterval,
	})

	router := handler.NewRouter(&handler.RouterDeps{
		Renderer:       renderer,
		PostService:    postService,
		ProfileService: profileService,
		FollowService:  followService,
		AuthService:    authService,
		Cookie: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
			MaxAge: cfg.SessionMaxAge,
		},
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
			MaxBodyBytes: cfg.UploadMaxSize + 1<<20,
		},
		RateLimiter:    rateLimiter,
		Logger:         log,
		Metrics:        collector,
		ImageSources:   images.imageSources,
		PageCache:      pc.store,
		PageCacheTTL:   cfg.PageCacheTTL,
		HealthCheck:    healthCheck(store, pc),
		MetricsHandler: metrics.Handler(registry),
		MediaRoot:      images.localRoot,
		MediaURL:       cfg.MediaURL,
		MaxUploadSize:  cfg.UploadMaxSize,
	})

	return &server{
		handler: router,
		close: func() {
			rateLimiter.Stop()
			pc.close()
			closeStore()
		},
	}, nil
}

// runServe はWebサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	srv, err := buildServer(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer srv.close()

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      srv.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down web server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除を定期実行し、SIGINTまたはSIGTERMシグナルを受信すると終了する。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("session_cleanup_interval", cfg.SessionCleanupInterval),
	)

	job := cleanup.NewJob(store.Sessions, slog.Default(), nil)
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// 引数なしの場合はすべての未適用マイグレーションを適用し、downの場合は直近の1つを取り消す。
func runMigrate(cfg *config.Config, args []string) error {
	if cfg.StorageType != config.StoragePostgres {
		return fmt.Errorf("migrate requires STORAGE_TYPE=%s", config.StoragePostgres)
	}

	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if len(args) > 0 && args[0] == "down" {
		if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
	} else if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
