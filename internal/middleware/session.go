package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/coursecal/internal/session"
)

const SessionCookieName = "coursecal_session"

// Session makes sure every request carries a session token. A missing or
// malformed cookie is replaced with a fresh random token.
func Session(ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				if id, err := uuid.Parse(cookie.Value); err == nil {
					token = id.String()
				}
			}
			if token == "" {
				token = uuid.NewString()
			}

			// Refresh on every request so active sessions never expire.
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    token,
				Path:     "/",
				MaxAge:   int(ttl.Seconds()),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := session.WithToken(r.Context(), token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
