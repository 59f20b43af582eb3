package middleware

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	csrfCookieName = "csrf_token"

	// CSRFFieldName はフォームでCSRFトークンを送信する隠しフィールドの名前。
	CSRFFieldName = "csrf_token"

	// csrfHeaderName はリクエストヘッダーからCSRFトークンを読み取る際のヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// multipartMemory はフォーム解析時にメモリへ保持するサイズの上限。
	multipartMemory = 8 << 20
)

type contextKey string

var csrfTokenContextKey = contextKey("csrf_token")

// CSRFConfig はCSRFミドルウェアの設定。
type CSRFConfig struct {
	CookieSecure bool
	CookieDomain string
	MaxBodyBytes int64 // フォーム読み取り時のボディサイズ上限。0以下は無制限
}

// NewCSRFMiddleware はダブルサブミットCookie方式のCSRF対策ミドルウェアを返す。
// 安全なメソッド（GET, HEAD, OPTIONS）はトークンを発行してコンテキストに格納する。
// 状態変更メソッドはフォームフィールドまたはヘッダーのトークンがCookieと一致することを要求する。
func NewCSRFMiddleware(config CSRFConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				token := ensureCSRFCookie(w, r, config)
				next.ServeHTTP(w, withCSRFToken(r, token))
				return
			}

			cookieToken, err := r.Cookie(csrfCookieName)
			if err != nil || cookieToken.Value == "" {
				csrfFailure(w, r, "missing cookie token")
				return
			}

			if config.MaxBodyBytes > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, config.MaxBodyBytes)
			}
			submitted := r.Header.Get(csrfHeaderName)
			if submitted == "" {
				if err := parseSubmittedForm(r); err != nil {
					if IsBodyTooLarge(err) {
						RequestTooLarge(w, r)
						return
					}
					csrfFailure(w, r, "malformed form body")
					return
				}
				submitted = r.PostFormValue(CSRFFieldName)
			}
			if submitted == "" {
				csrfFailure(w, r, "missing submitted token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(cookieToken.Value), []byte(submitted)) != 1 {
				csrfFailure(w, r, "token mismatch")
				return
			}

			next.ServeHTTP(w, withCSRFToken(r, cookieToken.Value))
		})
	}
}

// parseSubmittedForm はURLエンコードまたはマルチパートのフォームを解析する。
func parseSubmittedForm(r *http.Request) error {
	err := r.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

// IsBodyTooLarge はerrがMaxBytesReaderの上限超過によるものかを判定する。
func IsBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// RequestTooLarge はリクエストボディの上限超過を413で返す。
func RequestTooLarge(w http.ResponseWriter, r *http.Request) {
	slog.Warn("request body too large",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	http.Error(w, "アップロードできるファイルサイズの上限を超えています。", http.StatusRequestEntityTooLarge)
}

// CSRFToken はテンプレートに埋め込むCSRFトークンを返す。
func CSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenContextKey).(string)
	return token
}

func withCSRFToken(r *http.Request, token string) *http.Request {
	if token == "" {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), csrfTokenContextKey, token))
}

func csrfFailure(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed: "+reason,
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	http.Error(w, "CSRF token validation failed", http.StatusForbidden)
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// ensureCSRFCookie はCSRFトークンCookieが未設定の場合に設定し、有効なトークンを返す。
func ensureCSRFCookie(w http.ResponseWriter, r *http.Request, config CSRFConfig) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token, err := generateCSRFToken()
	if err != nil {
		slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   86400 * 365,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return token
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
