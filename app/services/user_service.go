package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"blogfeed/app/forms"
	"blogfeed/app/media"
	"blogfeed/app/models"
	"blogfeed/app/repositories"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const badCredentials = "Please enter a correct username and password. Note that both fields may be case-sensitive."

// UserService manages accounts and login sessions.
type UserService struct {
	store      *repositories.Store
	media      *media.Store
	sessionTTL time.Duration
	hashCost   int
}

// NewUserService creates a UserService whose sessions last sessionTTL. Images
// of deleted accounts are removed from mediaStore.
func NewUserService(store *repositories.Store, mediaStore *media.Store, sessionTTL time.Duration) *UserService {
	return &UserService{store: store, media: mediaStore, sessionTTL: sessionTTL, hashCost: bcrypt.DefaultCost}
}

// Signup registers an account from a submitted form.
func (s *UserService) Signup(ctx context.Context, form *forms.SignupForm) (*models.User, error) {
	form.Username = strings.TrimSpace(form.Username)
	form.Email = strings.TrimSpace(form.Email)
	if err := forms.Validate(form); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     form.Username,
		FirstName:    strings.TrimSpace(form.FirstName),
		LastName:     strings.TrimSpace(form.LastName),
		Email:        form.Email,
		PasswordHash: hash,
	}
	err = s.store.Users.Create(ctx, user)
	if errors.Is(err, repositories.ErrConflict) {
		return nil, forms.NewValidationError("username", "A user with that username already exists.")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.WithField("user", user.Username).Info("user signed up")
	return user, nil
}

// Login checks credentials and opens a session.
func (s *UserService) Login(ctx context.Context, form *forms.LoginForm) (*models.User, *models.Session, error) {
	if err := forms.Validate(form); err != nil {
		return nil, nil, err
	}
	user, err := s.store.Users.GetByUsername(ctx, form.Username)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil, forms.NewValidationError("", badCredentials)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(form.Password)); err != nil {
		return nil, nil, forms.NewValidationError("", badCredentials)
	}

	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return user, session, nil
}

// Logout ends the session identified by token.
func (s *UserService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.Sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its user. Unknown or expired tokens
// yield a nil user and no error.
func (s *UserService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.store.Sessions.Get(ctx, token)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	user, err := s.store.Users.GetByID(ctx, session.UserID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	return user, err
}

// GetByUsername looks up an account.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	return user, nil
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.store.Users.List(ctx)
}

// Delete removes an account with everything it owns.
func (s *UserService) Delete(ctx context.Context, username string) error {
	user, err := s.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	posts, err := s.store.Posts.ListByAuthor(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list posts of %q: %w", username, err)
	}
	if err := s.store.Users.Delete(ctx, user.ID); err != nil {
		return err
	}

	for _, post := range posts {
		if post.Image == "" {
			continue
		}
		if err := s.media.Delete(post.Image); err != nil {
			log.WithError(err).WithField("image", post.Image).Warn("failed to remove image of deleted user")
		}
	}
	return nil
}
