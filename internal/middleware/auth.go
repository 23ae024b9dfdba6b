package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"visiondash/internal/config"
)

// AuthCookie holds the login token.
const AuthCookie = "authenticated"

// AuthToken derives the cookie value for a password.
func AuthToken(password string) string {
	mac := hmac.New(sha256.New, []byte(password))
	mac.Write([]byte("visiondash-auth"))
	return hex.EncodeToString(mac.Sum(nil))
}

// Authenticated reports whether r carries a valid login cookie.
func Authenticated(cfg *config.Config, r *http.Request) bool {
	if !cfg.AuthEnabled() {
		return true
	}
	cookie, err := r.Cookie(AuthCookie)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(cookie.Value), []byte(AuthToken(cfg.Password)))
}

// AuthMiddleware sends visitors without a valid login cookie to /login. API
// requests get 401 instead. With no DASHBOARD_PASSWORD set it lets everything
// through.
func AuthMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Login page and its form are always reachable
			if r.URL.Path == "/login" ||
				r.URL.Path == "/auth/login" ||
				Authenticated(cfg, r) {
				next.ServeHTTP(w, r)
				return
			}

			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}
