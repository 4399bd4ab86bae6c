package services

import (
	"context"
	"fmt"
	"strings"

	"blogfeed/app/forms"
	"blogfeed/app/models"
	"blogfeed/app/repositories"
)

// CommentService handles business logic for comments
type CommentService struct {
	store *repositories.Store
}

// NewCommentService creates a new CommentService
func NewCommentService(store *repositories.Store) *CommentService {
	return &CommentService{store: store}
}

// Add appends a comment by viewer to username's post postID.
func (s *CommentService) Add(ctx context.Context, viewer *models.User, username string, postID int, form *forms.CommentForm) (*models.Comment, error) {
	if viewer == nil {
		return nil, ErrUnauthorized
	}
	_, post, err := lookupAuthoredPost(ctx, s.store, username, postID)
	if err != nil {
		return nil, err
	}
	if err := forms.Validate(form); err != nil {
		return nil, err
	}

	comment := &models.Comment{AuthorID: viewer.ID, Text: strings.TrimSpace(form.Text)}
	if err := comment.SetPost(post); err != nil {
		return nil, err
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}
