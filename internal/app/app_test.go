package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/yatube/internal/config"
	"github.com/hitoshi/yatube/internal/repository/memory"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.DatabaseURL != testDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, testDatabaseURL)
	}

	// slogのグローバルロガーがJSON出力に設定されていること
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "warn")

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log should be suppressed at warn level, got %s", buf.String())
	}
	slog.Default().Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warn log should be written, got %q", buf.String())
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	got := maskDatabaseURL(testDatabaseURL)
	if strings.Contains(got, "pass") {
		t.Errorf("masked URL leaks credentials: %q", got)
	}
	if got := maskDatabaseURL("short"); got != "***" {
		t.Errorf("maskDatabaseURL(short) = %q, want ***", got)
	}
}

// newMemoryServer はメモリストレージとローカル画像保存で構築したサーバーを返す。
func newMemoryServer(t *testing.T) *server {
	t.Helper()
	setMemoryEnv(t)

	cfg, err := Init(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	srv, err := buildServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	t.Cleanup(srv.close)
	return srv
}

func TestBuildServer_Health(t *testing.T) {
	srv := newMemoryServer(t)

	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body = %q, want status ok", w.Body.String())
	}
}

func TestBuildServer_IndexAndMetrics(t *testing.T) {
	srv := newMemoryServer(t)

	w := httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("security headers should be applied")
	}

	w = httptest.NewRecorder()
	srv.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	for _, name := range []string{"yatube_http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %s", name)
		}
	}
}

func TestHealthCheck_ReportsCacheFailure(t *testing.T) {
	store := memory.NewStore().Repositories()
	pc := &pageCache{ping: func(context.Context) error { return context.DeadlineExceeded }}

	err := healthCheck(store, pc)(context.Background())
	if err == nil || !strings.Contains(err.Error(), "page cache") {
		t.Errorf("healthCheck error = %v, want page cache failure", err)
	}

	if err := healthCheck(store, &pageCache{})(context.Background()); err != nil {
		t.Errorf("healthCheck without external cache = %v, want nil", err)
	}
}

func TestNewPageCache_DefaultsToMemory(t *testing.T) {
	pc := newPageCache(&config.Config{PageCacheBackend: config.BackendMemory})
	defer pc.close()
	if pc.ping != nil {
		t.Error("memory cache should not have a ping function")
	}
	if pc.store == nil {
		t.Fatal("store should not be nil")
	}
}
