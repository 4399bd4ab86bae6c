package models

import (
	"errors"
	"strings"
	"time"
)

// Validate checks the user record.
func (u *User) Validate() error {
	return validate.Struct(u)
}

// BeforeCreate stamps the join date.
func (u *User) BeforeCreate() {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
}

// FullName joins first and last name, falling back to the username.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Is reports whether u and other are the same account. A nil user is anonymous and
// never matches anything.
func (u *User) Is(other *User) bool {
	if u == nil || other == nil {
		return false
	}
	return u.ID == other.ID
}

// Validate checks the group record.
func (g *Group) Validate() error {
	return validate.Struct(g)
}

// Validate rejects self-referencing edges and missing endpoints.
func (f *Follow) Validate() error {
	if f.FollowerID == f.FolloweeID {
		return errors.New("a user cannot follow themselves")
	}
	return validate.Struct(f)
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
