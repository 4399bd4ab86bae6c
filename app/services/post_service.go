package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"blogfeed/app/forms"
	"blogfeed/app/media"
	"blogfeed/app/models"
	"blogfeed/app/monitoring"
	"blogfeed/app/repositories"

	log "github.com/sirupsen/logrus"
)

// ImageUpload is an image file submitted with a post form.
type ImageUpload struct {
	Name string
	Body io.Reader
}

// PostService handles business logic for blog posts
type PostService struct {
	store *repositories.Store
	media *media.Store
}

// NewPostService creates a new PostService
func NewPostService(store *repositories.Store, mediaStore *media.Store) *PostService {
	return &PostService{store: store, media: mediaStore}
}

// Create publishes a post by viewer. Invalid input returns a
// *forms.ValidationError and writes nothing.
func (s *PostService) Create(ctx context.Context, viewer *models.User, form *forms.PostForm, image *ImageUpload) (*models.Post, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	post := &models.Post{AuthorID: viewer.ID}
	if err := s.apply(ctx, post, form, image); err != nil {
		return nil, err
	}
	if err := s.store.Posts.Create(ctx, post); err != nil {
		s.discardImage(post.Image)
		return nil, fmt.Errorf("create post: %w", err)
	}
	monitoring.PostsCreated.Inc()
	log.WithFields(log.Fields{"post": post.ID, "author": viewer.Username}).Info("post created")
	return post, nil
}

// ForEdit returns username's post postID after checking viewer may edit it.
// A post owned by someone else yields an *OwnershipError.
func (s *PostService) ForEdit(ctx context.Context, viewer *models.User, username string, postID int) (*models.Post, error) {
	author, post, err := lookupAuthoredPost(ctx, s.store, username, postID)
	if err != nil {
		return nil, err
	}
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	if !viewer.Is(author) {
		return nil, &OwnershipError{Author: author.Username, PostID: post.ID}
	}
	return post, nil
}

// Edit rewrites the text, group and image of a post owned by viewer. The
// author and creation time never change.
func (s *PostService) Edit(ctx context.Context, viewer *models.User, username string, postID int, form *forms.PostForm, image *ImageUpload) (*models.Post, error) {
	post, err := s.ForEdit(ctx, viewer, username, postID)
	if err != nil {
		return nil, err
	}
	previousImage := post.Image
	if form.ClearImage {
		post.Image = ""
	}
	if err := s.apply(ctx, post, form, image); err != nil {
		return nil, err
	}
	if err := s.store.Posts.Update(ctx, post); err != nil {
		if post.Image != previousImage {
			s.discardImage(post.Image)
		}
		return nil, fmt.Errorf("update post: %w", err)
	}
	if previousImage != "" && post.Image != previousImage {
		s.discardImage(previousImage)
	}
	return post, nil
}

// FormFor fills a form with the current values of post.
func (s *PostService) FormFor(ctx context.Context, post *models.Post) (*forms.PostForm, error) {
	form := &forms.PostForm{Text: post.Text}
	if post.HasGroup() {
		group, err := s.store.Groups.GetByID(ctx, post.GroupID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, err
		}
		if group != nil {
			form.Group = group.Slug
		}
	}
	return form, nil
}

// apply validates form and copies it onto post, storing a new image if one
// was uploaded. Nothing is persisted when it returns an error.
func (s *PostService) apply(ctx context.Context, post *models.Post, form *forms.PostForm, image *ImageUpload) error {
	form.ImageName = ""
	if image != nil {
		form.ImageName = image.Name
	}
	if err := forms.Validate(form); err != nil {
		return err
	}

	groupID := 0
	if form.Group != "" {
		group, err := s.store.Groups.GetBySlug(ctx, form.Group)
		if errors.Is(err, repositories.ErrNotFound) {
			return forms.NewValidationError("group", "Select a valid choice. That choice is not one of the available choices.")
		}
		if err != nil {
			return fmt.Errorf("lookup group: %w", err)
		}
		groupID = group.ID
	}

	if image != nil {
		rel, err := s.media.Save(image.Body)
		switch {
		case errors.Is(err, media.ErrUnsupportedType):
			return forms.NewValidationError("image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		case errors.Is(err, media.ErrTooLarge):
			return forms.NewValidationError("image", "The uploaded image is too large.")
		case err != nil:
			return fmt.Errorf("store image: %w", err)
		}
		post.Image = rel
	}

	post.Text = strings.TrimSpace(form.Text)
	post.GroupID = groupID
	return nil
}

func (s *PostService) discardImage(rel string) {
	if err := s.media.Delete(rel); err != nil {
		log.WithError(err).WithField("image", rel).Warn("failed to remove image")
	}
}
