package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"blogfeed/app/auth"
	"blogfeed/app/forms"
	"blogfeed/app/media"
	"blogfeed/app/middleware"
	"blogfeed/app/services"
	"blogfeed/app/views"

	log "github.com/sirupsen/logrus"
)

// PostController handles creating and editing blog posts
type PostController struct {
	*Responder
	posts     *services.PostService
	groups    *services.GroupService
	maxUpload int64
}

// NewPostController creates a new PostController. Request bodies larger than
// maxUpload are cut off while parsing.
func NewPostController(rs *Responder, posts *services.PostService, groups *services.GroupService, maxUpload int64) *PostController {
	return &PostController{Responder: rs, posts: posts, groups: groups, maxUpload: maxUpload}
}

// New shows the post form and publishes submitted posts.
func (pc *PostController) New(w http.ResponseWriter, r *http.Request) {
	page := views.PostFormPage{Form: &forms.PostForm{}, Action: "/new/"}
	if r.Method != http.MethodPost {
		pc.showForm(w, r, page)
		return
	}

	image, release, err := pc.parse(w, r, page.Form)
	if err == nil {
		defer release()
		_, err = pc.posts.Create(r.Context(), auth.Viewer(r.Context()), page.Form, image)
	}
	if err != nil {
		pc.formError(w, r, page, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Edit lets the author change a post. Other users are sent to the read-only
// post view.
func (pc *PostController) Edit(w http.ResponseWriter, r *http.Request) {
	username, postID, err := postRef(r)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	viewer := auth.Viewer(r.Context())
	post, err := pc.posts.ForEdit(r.Context(), viewer, username, postID)
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	page := views.PostFormPage{
		Action:   postPath(username, postID) + "edit/",
		Editing:  true,
		ImageURL: media.URL(post.Image),
	}

	if r.Method != http.MethodPost {
		if page.Form, err = pc.posts.FormFor(r.Context(), post); err != nil {
			pc.fail(w, r, err)
			return
		}
		pc.showForm(w, r, page)
		return
	}

	page.Form = &forms.PostForm{}
	image, release, err := pc.parse(w, r, page.Form)
	if err == nil {
		defer release()
		_, err = pc.posts.Edit(r.Context(), viewer, username, postID, page.Form, image)
	}
	if err != nil {
		pc.formError(w, r, page, err)
		return
	}
	http.Redirect(w, r, postPath(username, postID), http.StatusFound)
}

// formError re-renders the form with its field errors. Anything that is not a
// validation failure goes through the usual error mapping.
func (pc *PostController) formError(w http.ResponseWriter, r *http.Request, page views.PostFormPage, err error) {
	var invalid *forms.ValidationError
	if !errors.As(err, &invalid) || middleware.IsAPI(r) {
		pc.fail(w, r, err)
		return
	}
	page.Errors = invalid
	pc.showForm(w, r, page)
}

func (pc *PostController) showForm(w http.ResponseWriter, r *http.Request, page views.PostFormPage) {
	groups, err := pc.groups.List(r.Context())
	if err != nil {
		pc.fail(w, r, err)
		return
	}
	page.Groups = groups
	pc.html(w, r, http.StatusOK, "post_form", page)
}

// parse reads a multipart or urlencoded post form into form. The returned
// close func releases the uploaded image and is never nil.
func (pc *PostController) parse(w http.ResponseWriter, r *http.Request, form *forms.PostForm) (*services.ImageUpload, func(), error) {
	noop := func() {}
	r.Body = http.MaxBytesReader(w, r.Body, pc.maxUpload+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, noop, forms.NewValidationError("image", "The uploaded image is too large.")
		}
		return nil, noop, fmt.Errorf("parse post form: %w", err)
	}
	if err := forms.Decode(r.PostForm, form); err != nil {
		return nil, noop, err
	}

	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("read image: %w", err)
	}
	return &services.ImageUpload{Name: header.Filename, Body: file}, closer(file), nil
}

func closer(file multipart.File) func() {
	return func() {
		if err := file.Close(); err != nil {
			log.WithError(err).Warn("close uploaded image")
		}
	}
}
