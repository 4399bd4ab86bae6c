package middleware

import (
	"context"
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/models"

	log "github.com/sirupsen/logrus"
)

// SessionResolver turns a session token into the signed-in user.
type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// Authenticate puts the session's user, if any, into the request context. A
// store failure is logged and the request continues anonymously.
func Authenticate(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.SessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := sessions.Authenticate(r.Context(), token)
			if err != nil {
				log.WithError(err).Error("session lookup failed")
			}
			if user != nil {
				r = r.WithContext(auth.WithViewer(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLogin redirects anonymous callers to the login page, carrying the
// requested URL in next. API callers get a 401 instead.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.Viewer(r.Context()) == nil {
			if IsAPI(r) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"login required"}` + "\n"))
				return
			}
			http.Redirect(w, r, auth.LoginURL(r), http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}
