package controllers

import (
	"errors"
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/forms"
	"blogfeed/app/models"
	"blogfeed/app/services"
	"blogfeed/app/views"

	log "github.com/sirupsen/logrus"
)

// AuthController handles signup, login and logout.
type AuthController struct {
	*Responder
	users         *services.UserService
	secureCookies bool
}

// NewAuthController creates an AuthController. secureCookies marks the
// session cookie HTTPS only.
func NewAuthController(rs *Responder, users *services.UserService, secureCookies bool) *AuthController {
	return &AuthController{Responder: rs, users: users, secureCookies: secureCookies}
}

// Signup registers an account and sends the new user to the login page.
func (ac *AuthController) Signup(w http.ResponseWriter, r *http.Request) {
	page := views.SignupPage{Form: &forms.SignupForm{}}
	if r.Method != http.MethodPost {
		ac.html(w, r, http.StatusOK, "signup", page)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	err := forms.Decode(r.PostForm, page.Form)
	if err == nil {
		_, err = ac.users.Signup(r.Context(), page.Form)
	}
	if errors.As(err, &page.Errors) {
		page.Form.Password, page.Form.PasswordConfirm = "", ""
		ac.html(w, r, http.StatusOK, "signup", page)
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	http.Redirect(w, r, auth.LoginPath, http.StatusFound)
}

// Login starts a session and continues to the page that asked for it.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	page := views.LoginPage{Form: &forms.LoginForm{Next: r.URL.Query().Get("next")}}
	if r.Method != http.MethodPost {
		ac.html(w, r, http.StatusOK, "login", page)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	var user *models.User
	var session *models.Session
	err := forms.Decode(r.PostForm, page.Form)
	if err == nil {
		user, session, err = ac.users.Login(r.Context(), page.Form)
	}
	if errors.As(err, &page.Errors) {
		page.Form.Password = ""
		ac.html(w, r, http.StatusOK, "login", page)
		return
	}
	if err != nil {
		ac.fail(w, r, err)
		return
	}
	auth.SetSessionCookie(w, session, ac.secureCookies)
	log.WithField("user", user.Username).Info("logged in")
	http.Redirect(w, r, auth.SafeNext(page.Form.Next), http.StatusFound)
}

// Logout ends the current session, if any.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	if err := ac.users.Logout(r.Context(), auth.SessionToken(r)); err != nil {
		log.WithError(err).Warn("logout failed")
	}
	auth.ClearSessionCookie(w, ac.secureCookies)
	http.Redirect(w, r, "/", http.StatusFound)
}
