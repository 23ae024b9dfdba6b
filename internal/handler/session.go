package handler

import (
	"net/http"

	"github.com/google/uuid"

	"visiondash/internal/service/session"
)

// sessionID returns the caller's session id, issuing a new cookie when the
// request has none or an invalid one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if id, ok := existingSessionID(r); ok {
		return id
	}

	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// existingSessionID reads the session cookie without issuing one.
func existingSessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(session.CookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return "", false
	}
	return cookie.Value, true
}
