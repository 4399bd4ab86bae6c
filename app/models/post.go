package models

import (
	"errors"
	"time"
)

// Validate checks if the post meets all validation requirements
func (p *Post) Validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}

	if p.CreatedAt.IsZero() {
		return errors.New("created_at cannot be zero")
	}

	return nil
}

// BeforeCreate stamps the creation time once; edits never touch it again.
func (p *Post) BeforeCreate() {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// HasGroup reports whether the post is filed under a group.
func (p *Post) HasGroup() bool {
	return p.GroupID > 0
}

// NewerThan orders posts newest first, breaking timestamp ties by id.
func (p *Post) NewerThan(other *Post) bool {
	if p.CreatedAt.Equal(other.CreatedAt) {
		return p.ID > other.ID
	}
	return p.CreatedAt.After(other.CreatedAt)
}
