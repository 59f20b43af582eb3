package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"slices"
	"time"
)

// MiddlewareConfig はページキャッシュミドルウェアの設定。
type MiddlewareConfig struct {
	Store Store
	TTL   time.Duration
	// VaryCookie はキャッシュキーに含めるCookie名。
	// ログイン中のユーザーごとに別のスナップショットを保持するために使う。
	VaryCookie string
	// QueryParams が空でない場合、これ以外のクエリパラメーターを含むリクエストはキャッシュしない。
	QueryParams []string
	// OnHit/OnMiss はメトリクス記録用のフック。nilの場合は何もしない。
	OnHit  func()
	OnMiss func()
}

// Key はリクエストURIとCookie値からキャッシュキーを算出する。
func Key(r *http.Request, varyCookie string) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte{0})
	h.Write([]byte(r.URL.RequestURI()))
	if varyCookie != "" {
		if c, err := r.Cookie(varyCookie); err == nil {
			h.Write([]byte{0})
			h.Write([]byte(c.Value))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Middleware はGETレスポンスをTTLの間キャッシュするミドルウェアを返す。
// 200以外のレスポンスとSet-Cookieを含むレスポンスは保存しない。
// ストアの障害時はキャッシュを使わずに処理を続行する。
func Middleware(cfg MiddlewareConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || cfg.Store == nil || cfg.TTL <= 0 || !cacheableQuery(r, cfg.QueryParams) {
				next.ServeHTTP(w, r)
				return
			}

			key := Key(r, cfg.VaryCookie)
			entry, ok, err := cfg.Store.Get(r.Context(), key)
			if err != nil {
				slog.Warn("page cache lookup failed", slog.String("error", err.Error()))
			}
			if ok {
				if cfg.OnHit != nil {
					cfg.OnHit()
				}
				if entry.ContentType != "" {
					w.Header().Set("Content-Type", entry.ContentType)
				}
				w.Header().Set("X-Cache", "HIT")
				w.WriteHeader(entry.Status)
				_, _ = w.Write(entry.Body)
				return
			}
			if cfg.OnMiss != nil {
				cfg.OnMiss()
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK || rec.Header().Get("Set-Cookie") != "" {
				return
			}
			stored := &Entry{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := cfg.Store.Set(r.Context(), key, stored, cfg.TTL); err != nil {
				slog.Warn("page cache store failed", slog.String("error", err.Error()))
			}
		})
	}
}

// cacheableQuery はクエリパラメーターがallowedの範囲に収まるかを返す。
func cacheableQuery(r *http.Request, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for name := range r.URL.Query() {
		if !slices.Contains(allowed, name) {
			return false
		}
	}
	return true
}

// recorder はクライアントへ書き込みつつレスポンスを複製する。
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
