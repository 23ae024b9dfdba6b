package handler

import (
	"net/http"

	"visiondash/internal/config"
	"visiondash/internal/logger"
	"visiondash/internal/middleware"
	"visiondash/internal/view"
)

// LoginPageHandler renders GET /login.
func LoginPageHandler(cfg *config.Config, renderer *view.Renderer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.AuthEnabled() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		page := view.Page{Title: cfg.Title, Accent: cfg.Accent, AuthEnabled: true}
		if r.URL.Query().Get("failed") != "" {
			page.Error = "Invalid password"
		}
		if err := renderer.Render(w, "login", page); err != nil {
			logger.Error("Error rendering login page: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
}

// LoginHandler handles POST /auth/login by validating password and issuing an auth cookie.
func LoginHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.AuthEnabled() {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		if r.FormValue("password") != cfg.Password {
			logger.Warning("Failed login attempt from %s", r.RemoteAddr)
			http.Redirect(w, r, "/login?failed=1", http.StatusSeeOther)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AuthCookie,
			Value:    middleware.AuthToken(cfg.Password),
			Path:     "/",
			MaxAge:   2592000, // 30 days
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// LogoutHandler clears the authentication cookie and redirects to the login page.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.AuthCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
