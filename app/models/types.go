package models

import "time"

// User is an account that authors posts and comments and follows other users.
type User struct {
	ID           int       `json:"id" validate:"gte=0"`
	Username     string    `json:"username" validate:"required,min=1,max=150,username"`
	FirstName    string    `json:"first_name,omitempty" validate:"max=150"`
	LastName     string    `json:"last_name,omitempty" validate:"max=150"`
	Email        string    `json:"email,omitempty" validate:"omitempty,email"`
	PasswordHash []byte    `json:"password_hash,omitempty" validate:"-"`
	CreatedAt    time.Time `json:"created_at" validate:"required"`
}

// Group is a named community that posts may be filed under.
type Group struct {
	ID          int    `json:"id" validate:"gte=0"`
	Title       string `json:"title" validate:"required,max=200"`
	Slug        string `json:"slug" validate:"required,max=50,slug"`
	Description string `json:"description"`
}

// Post is a blog entry. GroupID is zero when the post is not filed under a group.
type Post struct {
	ID        int       `json:"id" validate:"gte=0"`
	Text      string    `json:"text" validate:"required,notblank"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	GroupID   int       `json:"group_id,omitempty" validate:"gte=0"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Comment is a reply to a post.
type Comment struct {
	ID        int       `json:"id" validate:"gte=0"`
	PostID    int       `json:"post_id" validate:"required,gt=0"`
	AuthorID  int       `json:"author_id" validate:"required,gt=0"`
	Text      string    `json:"text" validate:"required,notblank"`
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Follow is a directed edge: FollowerID sees FolloweeID's posts in their follow feed.
type Follow struct {
	FollowerID int       `json:"follower_id" validate:"required,gt=0"`
	FolloweeID int       `json:"followee_id" validate:"required,gt=0,nefield=FollowerID"`
	CreatedAt  time.Time `json:"created_at"`
}

// Session binds an opaque token to a signed-in user.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
