package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"blogfeed/app/auth"
	"blogfeed/app/forms"
	"blogfeed/app/media"
	"blogfeed/app/models"
	"blogfeed/app/repositories"
	"blogfeed/app/repositories/mock"
	"blogfeed/app/services"
	"blogfeed/app/views"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResponder(t *testing.T) *Responder {
	t.Helper()
	renderer, err := views.New()
	require.NoError(t, err)
	return NewResponder(renderer)
}

func TestFail(t *testing.T) {
	log.SetOutput(&bytes.Buffer{})
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	rs := newResponder(t)

	tests := []struct {
		name     string
		path     string
		err      error
		status   int
		location string
	}{
		{"not found", "/leo/", fmt.Errorf("user: %w", services.ErrNotFound), http.StatusNotFound, ""},
		{"not found api", "/api/leo/", services.ErrNotFound, http.StatusNotFound, ""},
		{"unauthorized", "/follow/", services.ErrUnauthorized, http.StatusFound, "/auth/login/?next=/follow/"},
		{"unauthorized api", "/api/follow/", services.ErrUnauthorized, http.StatusUnauthorized, ""},
		{"ownership", "/anna/3/edit/", &services.OwnershipError{Author: "leo", PostID: 3}, http.StatusFound, "/leo/3/"},
		{"ownership api", "/api/leo/3/", &services.OwnershipError{Author: "leo", PostID: 3}, http.StatusForbidden, ""},
		{"invalid", "/api/new/", forms.NewValidationError("text", "This field is required."), http.StatusUnprocessableEntity, ""},
		{"other", "/", errors.New("disk on fire"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rs.fail(rec, httptest.NewRequest(http.MethodGet, tt.path, nil), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
}

func TestPostRef(t *testing.T) {
	req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/leo/7/", nil), map[string]string{"username": "leo", "post_id": "7"})
	username, id, err := postRef(req)
	require.NoError(t, err)
	assert.Equal(t, "leo", username)
	assert.Equal(t, 7, id)

	req = mux.SetURLVars(req, map[string]string{"username": "leo", "post_id": "99999999999999999999"})
	_, _, err = postRef(req)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

type postFixture struct {
	store      *repositories.Store
	controller *PostController
	router     *mux.Router
	mediaRoot  string
	author     *models.User
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	store := mock.NewStore()
	mediaRoot := t.TempDir()
	posts := services.NewPostService(store, media.NewStore(mediaRoot, 1<<20))
	controller := NewPostController(newResponder(t), posts, services.NewGroupService(store.Groups), 1<<20)

	author := &models.User{Username: "leo"}
	require.NoError(t, store.Users.Create(context.Background(), author))

	router := mux.NewRouter()
	router.HandleFunc("/new/", controller.New).Methods("GET", "POST")
	router.HandleFunc("/{username}/{post_id:[0-9]+}/edit/", controller.Edit).Methods("GET", "POST")
	return &postFixture{store: store, controller: controller, router: router, mediaRoot: mediaRoot, author: author}
}

func (f *postFixture) serve(req *http.Request, viewer *models.User) *httptest.ResponseRecorder {
	if viewer != nil {
		req = req.WithContext(auth.WithViewer(req.Context(), viewer))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func multipartPost(t *testing.T, target string, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if fileName != "" {
		part, err := writer.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestNewPostWithImage(t *testing.T) {
	f := newPostFixture(t)

	req := multipartPost(t, "/new/", map[string]string{"text": "A cat"}, "cat.png", pngBytes(t))
	rec := f.serve(req, f.author)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())

	posts, err := f.store.Posts.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "A cat", posts[0].Text)
	require.NotEmpty(t, posts[0].Image)
	_, err = os.Stat(filepath.Join(f.mediaRoot, filepath.FromSlash(posts[0].Image)))
	assert.NoError(t, err)
}

func TestNewPostRejectsNonImage(t *testing.T) {
	f := newPostFixture(t)

	req := multipartPost(t, "/new/", map[string]string{"text": "A cat"}, "cat.png", []byte("not really a png"))
	rec := f.serve(req, f.author)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Upload a valid image.")
	assert.Contains(t, rec.Body.String(), ">A cat</textarea>")

	posts, err := f.store.Posts.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestEditPostClearsImage(t *testing.T) {
	f := newPostFixture(t)
	req := multipartPost(t, "/new/", map[string]string{"text": "A cat"}, "cat.png", pngBytes(t))
	require.Equal(t, http.StatusFound, f.serve(req, f.author).Code)
	posts, err := f.store.Posts.List(context.Background())
	require.NoError(t, err)
	post := posts[0]
	target := fmt.Sprintf("/leo/%d/edit/", post.ID)

	rec := f.serve(httptest.NewRequest(http.MethodGet, target, nil), f.author)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), media.URL(post.Image))

	req = multipartPost(t, target, map[string]string{"text": "No cat", "image-clear": "on"}, "", nil)
	rec = f.serve(req, f.author)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, fmt.Sprintf("/leo/%d/", post.ID), rec.Header().Get("Location"))

	updated, err := f.store.Posts.GetByID(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "No cat", updated.Text)
	assert.Empty(t, updated.Image)
	assert.Equal(t, post.CreatedAt, updated.CreatedAt)
	_, err = os.Stat(filepath.Join(f.mediaRoot, filepath.FromSlash(post.Image)))
	assert.True(t, os.IsNotExist(err))
}

func TestEditByOtherUserRedirects(t *testing.T) {
	f := newPostFixture(t)
	post := &models.Post{Text: "mine", AuthorID: f.author.ID, CreatedAt: time.Now()}
	require.NoError(t, f.store.Posts.Create(context.Background(), post))
	anna := &models.User{Username: "anna"}
	require.NoError(t, f.store.Users.Create(context.Background(), anna))

	rec := f.serve(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/leo/%d/edit/", post.ID), nil), anna)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, fmt.Sprintf("/leo/%d/", post.ID), rec.Header().Get("Location"))
}
