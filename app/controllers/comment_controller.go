package controllers

import (
	"errors"
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/forms"
	"blogfeed/app/services"

	log "github.com/sirupsen/logrus"
)

// CommentController handles HTTP requests for comments
type CommentController struct {
	*Responder
	comments *services.CommentService
}

// NewCommentController creates a new CommentController
func NewCommentController(rs *Responder, comments *services.CommentService) *CommentController {
	return &CommentController{Responder: rs, comments: comments}
}

// Add stores a comment and returns to the post. A blank comment is dropped
// without an error page.
func (cc *CommentController) Add(w http.ResponseWriter, r *http.Request) {
	username, postID, err := postRef(r)
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	var form forms.CommentForm
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	err = forms.Decode(r.PostForm, &form)
	if err == nil {
		_, err = cc.comments.Add(r.Context(), auth.Viewer(r.Context()), username, postID, &form)
	}
	var invalid *forms.ValidationError
	if errors.As(err, &invalid) {
		log.WithField("post", postID).Debug("ignored invalid comment")
		err = nil
	}
	if err != nil {
		cc.fail(w, r, err)
		return
	}
	http.Redirect(w, r, postPath(username, postID), http.StatusFound)
}
