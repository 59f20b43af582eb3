package middleware

import "net/http"

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
// imgSrcには投稿画像の配信元（MinIO利用時のエンドポイントなど）を追加で指定できる。
func NewSecurityHeadersMiddleware(imgSrc ...string) func(next http.Handler) http.Handler {
	csp := "default-src 'self'; img-src 'self' data:"
	for _, src := range imgSrc {
		if src != "" {
			csp += " " + src
		}
	}
	csp += "; frame-ancestors 'none'; form-action 'self'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			w.Header().Set("Content-Security-Policy", csp)
			next.ServeHTTP(w, r)
		})
	}
}
