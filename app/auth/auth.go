// Package auth carries the signed-in viewer through a request and manages the
// session cookie.
package auth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"blogfeed/app/models"
)

// CookieName is the session cookie.
const CookieName = "blogfeed_session"

// LoginPath is where anonymous callers are sent.
const LoginPath = "/auth/login/"

type viewerKey struct{}

// WithViewer returns a context carrying user as the viewer.
func WithViewer(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, viewerKey{}, user)
}

// Viewer returns the signed-in user, or nil for an anonymous request.
func Viewer(ctx context.Context) *models.User {
	user, _ := ctx.Value(viewerKey{}).(*models.User)
	return user
}

// SessionToken reads the session cookie.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// SetSessionCookie stores session in the browser until it expires.
func SetSessionCookie(w http.ResponseWriter, session *models.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoginURL is the login page with next pointing back at r. Slashes in next are
// left unescaped.
func LoginURL(r *http.Request) string {
	next := strings.ReplaceAll(url.QueryEscape(r.URL.RequestURI()), "%2F", "/")
	return LoginPath + "?next=" + next
}

// SafeNext returns next when it is a local path and "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}
