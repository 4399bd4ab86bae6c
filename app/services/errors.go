package services

import (
	"errors"
	"fmt"

	"blogfeed/app/repositories"
)

var (
	// ErrNotFound is the repository sentinel, re-exported so handlers only
	// depend on this package.
	ErrNotFound = repositories.ErrNotFound
	// ErrUnauthorized means the action needs a signed-in viewer.
	ErrUnauthorized = errors.New("login required")
	// ErrForbidden means the viewer is signed in but does not own the resource.
	ErrForbidden = errors.New("forbidden")
)

// OwnershipError is returned when a viewer tries to change someone else's post.
// It matches ErrForbidden and carries where the read-only view lives.
type OwnershipError struct {
	Author string
	PostID int
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("post %d belongs to %s", e.PostID, e.Author)
}

func (e *OwnershipError) Is(target error) bool {
	return target == ErrForbidden
}
