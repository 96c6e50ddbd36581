package session

import (
	"net/http"

	"github.com/google/uuid"
)

const cookieName = "medcost_session"

// setCookie issues the session cookie.  It is a browser-session cookie; the
// server forgets the ID on eviction anyway.
func setCookie(w http.ResponseWriter, r *http.Request, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure || r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionID returns the cookie value when it parses as a UUID.
func sessionID(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}
