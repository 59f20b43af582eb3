package middleware

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func csrfHandler(t *testing.T, called *bool, token *string) http.Handler {
	t.Helper()
	return NewCSRFMiddleware(CSRFConfig{MaxBodyBytes: 1 << 20})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		if token != nil {
			*token = CSRFToken(r)
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func formPost(values url.Values, cookieToken string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/new/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookieToken != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookieToken})
	}
	return req
}

func TestCSRFMiddleware_SafeMethods_PassThroughWithoutToken(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called, nil)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/new/", nil))

			if !called {
				t.Fatalf("handler should have been called for %s", method)
			}
		})
	}
}

func TestCSRFMiddleware_GET_SetsCookieAndExposesToken(t *testing.T) {
	called := false
	var token string
	handler := csrfHandler(t, &called, &token)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/new/", nil))

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected csrf_token cookie")
	}
	if len(cookie.Value) != 64 {
		t.Errorf("token length = %d, want 64", len(cookie.Value))
	}
	if token != cookie.Value {
		t.Errorf("context token = %q, want cookie value %q", token, cookie.Value)
	}
	if cookie.SameSite != http.SameSiteLaxMode || !cookie.HttpOnly {
		t.Errorf("cookie attributes = %+v", cookie)
	}
}

func TestCSRFMiddleware_GET_ExistingCookie_DoesNotReplace(t *testing.T) {
	called := false
	var token string
	handler := csrfHandler(t, &called, &token)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Error("existing cookie should not be replaced")
	}
	if token != "existing-token" {
		t.Errorf("context token = %q, want existing-token", token)
	}
}

func TestCSRFMiddleware_POST_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		cookieToken string
		formToken   string
	}{
		{"Cookieなし", "", "token"},
		{"フォームトークンなし", "token", ""},
		{"トークン不一致", "token", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called, nil)

			values := url.Values{"text": {"hello"}}
			if tt.formToken != "" {
				values.Set(CSRFFieldName, tt.formToken)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, formPost(values, tt.cookieToken))

			if called {
				t.Error("handler should not be called")
			}
			if w.Code != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFMiddleware_POST_ValidFormToken_PassesThrough(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called, nil)

	values := url.Values{"text": {"hello"}, CSRFFieldName: {"token"}}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, formPost(values, "token"))

	if !called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d", called, w.Code)
	}
}

func TestCSRFMiddleware_POST_ValidHeaderToken_PassesThrough(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called, nil)

	req := formPost(url.Values{"text": {"hello"}}, "token")
	req.Header.Set(csrfHeaderName, "token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d", called, w.Code)
	}
}

func TestCSRFMiddleware_AllStateMutatingMethods_RequireToken(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called, nil)

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, "/x", nil))

			if w.Code != http.StatusForbidden {
				t.Errorf("%s status = %d, want %d", method, w.Code, http.StatusForbidden)
			}
		})
	}
}

func TestCSRFMiddleware_POST_BodyTooLarge_Returns413(t *testing.T) {
	called := false
	handler := NewCSRFMiddleware(CSRFConfig{MaxBodyBytes: 64})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	t.Run("urlencoded", func(t *testing.T) {
		called = false
		values := url.Values{CSRFFieldName: {"token"}, "text": {strings.Repeat("a", 1024)}}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, formPost(values, "token"))

		if called {
			t.Error("handler should not be called")
		}
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
		}
	})

	t.Run("multipart", func(t *testing.T) {
		called = false
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		_ = mw.WriteField(CSRFFieldName, "token")
		part, _ := mw.CreateFormFile("image", "big.png")
		_, _ = part.Write(bytes.Repeat([]byte{0}, 4096))
		_ = mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/new/", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token"})
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if called {
			t.Error("handler should not be called")
		}
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
		}
	})
}

func TestCSRFMiddleware_POST_MultipartToken_PassesThrough(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called, nil)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField(CSRFFieldName, "token")
	_ = mw.WriteField("text", "hello")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/new/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called || w.Code != http.StatusOK {
		t.Errorf("called = %v, status = %d", called, w.Code)
	}
}
