package services

import (
	"context"
	"fmt"

	"blogfeed/app/models"
	"blogfeed/app/repositories"
)

// GroupService administers groups. Groups are created from the command line.
type GroupService struct {
	groups repositories.GroupRepository
}

func NewGroupService(groups repositories.GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

func (s *GroupService) Create(ctx context.Context, title, slug, description string) (*models.Group, error) {
	group := &models.Group{Title: title, Slug: slug, Description: description}
	if err := group.Validate(); err != nil {
		return nil, fmt.Errorf("invalid group: %w", err)
	}
	if err := s.groups.Create(ctx, group); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return group, nil
}

func (s *GroupService) List(ctx context.Context) ([]*models.Group, error) {
	return s.groups.List(ctx)
}

// Delete removes the group; its posts stay, without a group.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	group, err := s.groups.GetBySlug(ctx, slug)
	if err != nil {
		return fmt.Errorf("group %q: %w", slug, err)
	}
	return s.groups.Delete(ctx, group.ID)
}
