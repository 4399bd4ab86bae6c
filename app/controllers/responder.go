package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"blogfeed/app/auth"
	"blogfeed/app/forms"
	"blogfeed/app/middleware"
	"blogfeed/app/services"
	"blogfeed/app/views"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// Responder writes pages as HTML or JSON and maps service errors to
// responses. Every controller embeds one.
type Responder struct {
	views *views.Renderer
}

// NewResponder creates a Responder rendering HTML through v.
func NewResponder(v *views.Renderer) *Responder {
	return &Responder{views: v}
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func (rs *Responder) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("encode response")
	}
}

func (rs *Responder) html(w http.ResponseWriter, r *http.Request, status int, name string, content any) {
	data := views.Data{Viewer: auth.Viewer(r.Context()), Content: content}
	if err := rs.views.Render(w, status, name, data); err != nil {
		log.WithError(err).WithField("page", name).Error("render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// respond writes content as JSON for API requests and as page name otherwise.
func (rs *Responder) respond(w http.ResponseWriter, r *http.Request, name string, content any) {
	if middleware.IsAPI(r) {
		rs.json(w, http.StatusOK, content)
		return
	}
	rs.html(w, r, http.StatusOK, name, content)
}

// NotFound serves the 404 page.
func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAPI(r) {
		rs.json(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	rs.html(w, r, http.StatusNotFound, "404", r.URL.Path)
}

// ServerError serves the 500 page.
func (rs *Responder) ServerError(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAPI(r) {
		rs.json(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	rs.html(w, r, http.StatusInternalServerError, "500", nil)
}

// fail turns err into the matching response.
func (rs *Responder) fail(w http.ResponseWriter, r *http.Request, err error) {
	var owner *services.OwnershipError
	var invalid *forms.ValidationError
	switch {
	case errors.Is(err, services.ErrNotFound):
		rs.NotFound(w, r)
	case errors.Is(err, services.ErrUnauthorized):
		if middleware.IsAPI(r) {
			rs.json(w, http.StatusUnauthorized, errorBody{Error: "login required"})
			return
		}
		http.Redirect(w, r, auth.LoginURL(r), http.StatusFound)
	case errors.As(err, &owner):
		if middleware.IsAPI(r) {
			rs.json(w, http.StatusForbidden, errorBody{Error: err.Error()})
			return
		}
		http.Redirect(w, r, postPath(owner.Author, owner.PostID), http.StatusFound)
	case errors.As(err, &invalid):
		rs.json(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid form", Fields: invalid.Fields})
	default:
		log.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error("request failed")
		rs.ServerError(w, r)
	}
}

func profilePath(username string) string {
	return "/" + username + "/"
}

func postPath(username string, postID int) string {
	return fmt.Sprintf("/%s/%d/", username, postID)
}

// postRef reads the username and post id route variables. An id that does not
// fit an int is reported as not found.
func postRef(r *http.Request) (string, int, error) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["post_id"])
	if err != nil {
		return "", 0, fmt.Errorf("post id %q: %w", vars["post_id"], services.ErrNotFound)
	}
	return vars["username"], id, nil
}
