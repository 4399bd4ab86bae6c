package controllers

import (
	"context"
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/services"

	"github.com/gorilla/mux"
)

// FollowController changes who the viewer follows.
type FollowController struct {
	*Responder
	users *services.UserService
	graph *services.SocialGraph
}

func NewFollowController(rs *Responder, users *services.UserService, graph *services.SocialGraph) *FollowController {
	return &FollowController{Responder: rs, users: users, graph: graph}
}

// Follow subscribes the viewer to an author and returns to their profile.
// Following yourself or someone already followed changes nothing.
func (fc *FollowController) Follow(w http.ResponseWriter, r *http.Request) {
	fc.change(w, r, fc.graph.Follow)
}

// Unfollow removes the edge if there is one.
func (fc *FollowController) Unfollow(w http.ResponseWriter, r *http.Request) {
	fc.change(w, r, fc.graph.Unfollow)
}

func (fc *FollowController) change(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, followerID, followeeID int) error) {
	viewer := auth.Viewer(r.Context())
	if viewer == nil {
		fc.fail(w, r, services.ErrUnauthorized)
		return
	}
	author, err := fc.users.GetByUsername(r.Context(), mux.Vars(r)["username"])
	if err != nil {
		fc.fail(w, r, err)
		return
	}
	if err := apply(r.Context(), viewer.ID, author.ID); err != nil {
		fc.fail(w, r, err)
		return
	}
	http.Redirect(w, r, profilePath(author.Username), http.StatusFound)
}
