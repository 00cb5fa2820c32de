package handler

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pavelanni/retina/internal/model"
)

const (
	csrfCookieName = "csrf_token"
	tokenBytes     = 32
)

// generateToken returns a random URL-safe token. It backs both CSRF tokens
// and one-shot check ids.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func validToken(s string) bool {
	b, err := base64.URLEncoding.DecodeString(s)
	return err == nil && len(b) == tokenBytes
}

// csrfMiddleware implements the double-submit cookie pattern. The token is
// issued once per browser and reused, so every open page keeps a valid
// token; unsafe methods must echo the cookie in the csrf_token form field.
func (h *Handler) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(csrfCookieName); err == nil && validToken(cookie.Value) {
			token = cookie.Value
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if token == "" {
				slog.Warn("CSRF cookie missing", "path", r.URL.Path)
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			formToken := r.FormValue("csrf_token")
			if formToken == "" {
				slog.Warn("CSRF form token missing", "path", r.URL.Path)
				http.Error(w, "csrf token missing", http.StatusForbidden)
				return
			}
			if len(formToken) != len(token) || subtle.ConstantTimeCompare([]byte(formToken), []byte(token)) != 1 {
				slog.Warn("CSRF token mismatch", "path", r.URL.Path)
				http.Error(w, "invalid csrf token", http.StatusForbidden)
				return
			}
		}

		if token == "" {
			var err error
			token, err = generateToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    token,
				Path:     h.config.CookiePath(),
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := model.ContextWithCSRFToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
