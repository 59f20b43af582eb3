package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/yatube/internal/cache"
	"github.com/hitoshi/yatube/internal/config"
	"github.com/hitoshi/yatube/internal/database"
	"github.com/hitoshi/yatube/internal/media"
	"github.com/hitoshi/yatube/internal/metrics"
	"github.com/hitoshi/yatube/internal/repository"
	"github.com/hitoshi/yatube/internal/repository/memory"
)

// openStore はSTORAGE_TYPEに応じたリポジトリ群を構築する。
// 返されるclose関数は必ず呼び出すこと。
func openStore(ctx context.Context, cfg *config.Config) (*repository.Store, func(), error) {
	switch cfg.StorageType {
	case config.StorageMemory:
		slog.Warn("using in-memory storage; data is lost on restart")
		return memory.NewStore().Repositories(), func() {}, nil
	default:
		db, err := openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(db), func() { db.Close() }, nil
	}
}

// openDatabase はPostgreSQLに接続し、疎通を確認する。
func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)
	return db, nil
}

// mediaBackend は画像ストレージとその配信設定。
type mediaBackend struct {
	service *media.Service
	// localRoot はローカル保存時のルートディレクトリ。空の場合はアプリから配信しない。
	localRoot string
	// imageSources はCSPのimg-srcに追加する配信元。
	imageSources []string
}

// newMedia はMEDIA_BACKENDに応じた画像ストレージを構築する。
func newMedia(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*mediaBackend, error) {
	switch cfg.MediaBackend {
	case config.BackendMinIO:
		storage, err := media.NewMinIOStorage(ctx, media.MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize media storage: %w", err)
		}
		scheme := "http"
		if cfg.MinIOUseSSL {
			scheme = "https"
		}
		slog.Info("media storage: minio",
			slog.String("endpoint", cfg.MinIOEndpoint),
			slog.String("bucket", cfg.MinIOBucket),
		)
		return &mediaBackend{
			service:      media.NewService(storage, logger),
			imageSources: []string{scheme + "://" + cfg.MinIOEndpoint},
		}, nil
	default:
		slog.Info("media storage: local", slog.String("root", cfg.MediaRoot))
		return &mediaBackend{
			service:   media.NewService(media.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL), logger),
			localRoot: cfg.MediaRoot,
		}, nil
	}
}

// pageCache はトップページのキャッシュとその疎通確認。
type pageCache struct {
	store cache.Store
	// ping は外部キャッシュの疎通確認。メモリキャッシュの場合はnil。
	ping  func(ctx context.Context) error
	close func()
}

// newPageCache はPAGE_CACHE_BACKENDに応じたキャッシュを構築する。
func newPageCache(cfg *config.Config) *pageCache {
	if cfg.PageCacheBackend == config.BackendRedis {
		client := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		store := cache.NewRedisStore(client, cache.DefaultKeyPrefix)
		slog.Info("page cache: redis", slog.String("addr", cfg.RedisAddr))
		return &pageCache{
			store: store,
			ping:  store.Ping,
			close: func() { closeRedis(client) },
		}
	}
	slog.Info("page cache: memory")
	return &pageCache{store: cache.NewMemoryStore(), close: func() {}}
}

func closeRedis(client *redis.Client) {
	if err := client.Close(); err != nil {
		slog.Warn("failed to close redis client", slog.String("error", err.Error()))
	}
}

// newMetrics はアプリケーション専用のPrometheusレジストリとCollectorを構築する。
func newMetrics() (*prometheus.Registry, *metrics.Collector) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewCollector(reg)
}

// healthCheck はストレージと外部キャッシュの疎通をまとめて確認する関数を返す。
func healthCheck(store *repository.Store, pc *pageCache) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if store.Ping != nil {
			if err := store.Ping(ctx); err != nil {
				return fmt.Errorf("storage: %w", err)
			}
		}
		if pc != nil && pc.ping != nil {
			if err := pc.ping(ctx); err != nil {
				return fmt.Errorf("page cache: %w", err)
			}
		}
		return nil
	}
}
