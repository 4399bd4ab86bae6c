package repositories

import (
	"context"

	"blogfeed/app/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// Delete removes the user together with their posts, their comments, comments on
	// their posts, and every follow edge touching them.
	Delete(ctx context.Context, id int) error
}

// GroupRepository defines the interface for group data access
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id int) (*models.Group, error)
	GetBySlug(ctx context.Context, slug string) (*models.Group, error)
	List(ctx context.Context) ([]*models.Group, error)
	// Delete removes the group and clears the reference on its posts.
	Delete(ctx context.Context, id int) error
}

// PostRepository defines the interface for post data access. Every list method
// returns posts newest first.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id int) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID int) ([]*models.Post, error)
	ListByAuthors(ctx context.Context, authorIDs []int) ([]*models.Post, error)
	ListByGroup(ctx context.Context, groupID int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id int) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int) (*models.Comment, error)
	// ListByPost returns the comments of a post oldest first.
	ListByPost(ctx context.Context, postID int) ([]*models.Comment, error)
	CountByPost(ctx context.Context, postID int) (int, error)
	Delete(ctx context.Context, id int) error
}

// FollowRepository stores follow edges. Create reports whether a new edge was
// written; an existing edge is left untouched.
type FollowRepository interface {
	Create(ctx context.Context, follow *models.Follow) (bool, error)
	Delete(ctx context.Context, followerID, followeeID int) error
	Exists(ctx context.Context, followerID, followeeID int) (bool, error)
	FolloweesOf(ctx context.Context, followerID int) ([]int, error)
	CountFollowers(ctx context.Context, followeeID int) (int, error)
	CountFollowees(ctx context.Context, followerID int) (int, error)
}

// SessionRepository stores login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// Store bundles the repositories backed by one database.
type Store struct {
	Users    UserRepository
	Groups   GroupRepository
	Posts    PostRepository
	Comments CommentRepository
	Follows  FollowRepository
	Sessions SessionRepository
}
