package controllers

import (
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/pagination"
	"blogfeed/app/services"

	"github.com/gorilla/mux"
)

// FeedController serves the read-only listings.
type FeedController struct {
	*Responder
	feeds *services.FeedComposer
}

// NewFeedController creates a new FeedController
func NewFeedController(rs *Responder, feeds *services.FeedComposer) *FeedController {
	return &FeedController{Responder: rs, feeds: feeds}
}

func pageNumber(r *http.Request) int {
	return pagination.ParsePage(r.URL.Query().Get("page"))
}

// Index lists every post, newest first.
func (fc *FeedController) Index(w http.ResponseWriter, r *http.Request) {
	page, err := fc.feeds.Global(r.Context(), auth.Viewer(r.Context()), pageNumber(r))
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.respond(w, r, "index", page)
}

// Group lists the posts of one group.
func (fc *FeedController) Group(w http.ResponseWriter, r *http.Request) {
	feed, err := fc.feeds.ByGroup(r.Context(), auth.Viewer(r.Context()), mux.Vars(r)["slug"], pageNumber(r))
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.respond(w, r, "group", feed)
}

// Profile lists an author's posts.
func (fc *FeedController) Profile(w http.ResponseWriter, r *http.Request) {
	feed, err := fc.feeds.ByAuthor(r.Context(), auth.Viewer(r.Context()), mux.Vars(r)["username"], pageNumber(r))
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.respond(w, r, "profile", feed)
}

// Post shows one post with its comments.
func (fc *FeedController) Post(w http.ResponseWriter, r *http.Request) {
	username, postID, err := postRef(r)
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	view, err := fc.feeds.Post(r.Context(), auth.Viewer(r.Context()), username, postID)
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.respond(w, r, "post", view)
}

// Follow lists posts by the authors the viewer follows.
func (fc *FeedController) Follow(w http.ResponseWriter, r *http.Request) {
	page, err := fc.feeds.FollowSet(r.Context(), auth.Viewer(r.Context()), pageNumber(r))
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	fc.respond(w, r, "follow", page)
}
