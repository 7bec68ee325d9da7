package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

var csrfTestSecret = []byte("0123456789abcdef0123456789abcdef")

func csrfHandler() http.Handler {
	return NewCSRFMiddleware(CSRFConfig{Secret: csrfTestSecret})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func signedTestToken(nonce string) string {
	return nonce + "." + signCSRFNonce(csrfTestSecret, nonce)
}

// TestCSRF_GetSetsCookie はGETリクエストで署名付きトークンCookieが設定されることを検証する。
func TestCSRF_GetSetsCookie(t *testing.T) {
	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("CSRF cookie must be readable by forms (HttpOnly = false)")
			}
			if !verifyCSRFToken(csrfTestSecret, c.Value) {
				t.Errorf("issued token %q does not pass signature verification", c.Value)
			}
		}
	}
	if !found {
		t.Error("CSRF cookie not set on GET")
	}
}

// TestCSRF_PostWithoutToken はトークンなしのPOSTが403で拒否されることを検証する。
func TestCSRF_PostWithoutToken(t *testing.T) {
	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestCSRF_PostWithHeaderToken はヘッダーのトークン一致でPOSTが通ることを検証する。
func TestCSRF_PostWithHeaderToken(t *testing.T) {
	token := signedTestToken("tok-123")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	req.Header.Set(csrfHeaderName, token)

	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestCSRF_PostWithFormToken はフォームフィールドのトークン一致でPOSTが通ることを検証する。
func TestCSRF_PostWithFormToken(t *testing.T) {
	token := signedTestToken("tok-123")
	form := url.Values{csrfFormField: {token}}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})

	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

// TestCSRF_PostWithMismatchedToken はトークン不一致のPOSTが403で拒否されることを検証する。
func TestCSRF_PostWithMismatchedToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: signedTestToken("tok-123")})
	req.Header.Set(csrfHeaderName, signedTestToken("tok-456"))

	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestCSRF_PostWithForgedCookie は署名のない植え付けCookieトークンが拒否されることを検証する。
// Cookie値とヘッダー値が一致していても、署名検証を通らなければ無効。
func TestCSRF_PostWithForgedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "forged-token"})
	req.Header.Set(csrfHeaderName, "forged-token")

	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}

// TestCSRF_PostWithWrongSecretSignature は別の鍵で署名されたトークンが拒否されることを検証する。
func TestCSRF_PostWithWrongSecretSignature(t *testing.T) {
	other := []byte("ffffffffffffffffffffffffffffffff")
	token := "tok-123." + signCSRFNonce(other, "tok-123")
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	req.Header.Set(csrfHeaderName, token)

	w := httptest.NewRecorder()
	csrfHandler().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Code, http.StatusForbidden)
	}
}
