// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ストレージ種別
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// メディア・キャッシュのバックエンド種別
const (
	BackendLocal  = "local"
	BackendMinIO  = "minio"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageType string
	DatabaseURL string

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Logging
	LogLevel string

	// Page cache
	PageCacheTTL     time.Duration
	PageCacheBackend string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// Pagination
	PostsPerPage   int
	GroupPostLimit int

	// Media
	MediaBackend   string
	MediaRoot      string
	MediaURL       string
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	UploadMaxSize  int64

	// Rate Limit
	RateLimitGeneral int
	RateLimitWrite   int
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合は、不足しているものをまとめてエラーで返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.StorageType = strings.ToLower(getEnvString("STORAGE_TYPE", StoragePostgres))
	if cfg.StorageType != StoragePostgres && cfg.StorageType != StorageMemory {
		return nil, fmt.Errorf("unsupported STORAGE_TYPE: %q", cfg.StorageType)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && cfg.StorageType == StoragePostgres {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.MediaBackend = strings.ToLower(getEnvString("MEDIA_BACKEND", BackendLocal))
	if cfg.MediaBackend == BackendMinIO {
		for _, key := range []string{"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET"} {
			if os.Getenv(key) == "" {
				missing = append(missing, key)
			}
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 1209600)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.PageCacheTTL = getEnvDuration("PAGE_CACHE_TTL", 20*time.Second)
	cfg.PageCacheBackend = strings.ToLower(getEnvString("PAGE_CACHE_BACKEND", BackendMemory))
	if cfg.PageCacheBackend != BackendMemory && cfg.PageCacheBackend != BackendRedis {
		return nil, fmt.Errorf("unsupported PAGE_CACHE_BACKEND: %q", cfg.PageCacheBackend)
	}
	cfg.RedisAddr = getEnvString("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnvString("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvInt("REDIS_DB", 0)

	cfg.PostsPerPage = getEnvInt("POSTS_PER_PAGE", 10)
	cfg.GroupPostLimit = getEnvInt("GROUP_POST_LIMIT", 12)

	if cfg.MediaBackend != BackendLocal && cfg.MediaBackend != BackendMinIO {
		return nil, fmt.Errorf("unsupported MEDIA_BACKEND: %q", cfg.MediaBackend)
	}
	cfg.MediaRoot = getEnvString("MEDIA_ROOT", "./media")
	cfg.MediaURL = getEnvString("MEDIA_URL", "/media/")
	if !strings.HasSuffix(cfg.MediaURL, "/") {
		cfg.MediaURL += "/"
	}
	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	cfg.MinIOBucket = os.Getenv("MINIO_BUCKET")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 5242880)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitWrite = getEnvInt("RATE_LIMIT_WRITE", 30)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
