package services

import (
	"context"
	"errors"
	"fmt"

	"blogfeed/app/models"
	"blogfeed/app/monitoring"
	"blogfeed/app/repositories"

	log "github.com/sirupsen/logrus"
)

// SocialGraph maintains follow edges between users.
//
// Follow and Unfollow never report a rejected request: following yourself,
// following twice and unfollowing someone you do not follow all leave the
// graph as it was and return nil.
type SocialGraph struct {
	follows repositories.FollowRepository
}

// NewSocialGraph creates a SocialGraph over the given edge store.
func NewSocialGraph(follows repositories.FollowRepository) *SocialGraph {
	return &SocialGraph{follows: follows}
}

// Follow creates the edge follower -> followee. An unknown user yields ErrNotFound.
func (g *SocialGraph) Follow(ctx context.Context, followerID, followeeID int) error {
	exists, err := g.follows.Exists(ctx, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("check follow: %w", err)
	}
	if exists || followerID == followeeID {
		monitoring.FollowEvents.WithLabelValues("noop").Inc()
		return nil
	}

	created, err := g.follows.Create(ctx, &models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if errors.Is(err, repositories.ErrConflict) {
		log.WithFields(log.Fields{"follower": followerID, "followee": followeeID}).
			Debug("follow lost a write race, treating as done")
		err, created = nil, false
	}
	if err != nil {
		return fmt.Errorf("create follow: %w", err)
	}
	if created {
		monitoring.FollowEvents.WithLabelValues("follow").Inc()
	} else {
		monitoring.FollowEvents.WithLabelValues("noop").Inc()
	}
	return nil
}

// Unfollow removes the edge follower -> followee if it exists.
func (g *SocialGraph) Unfollow(ctx context.Context, followerID, followeeID int) error {
	if err := g.follows.Delete(ctx, followerID, followeeID); err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	monitoring.FollowEvents.WithLabelValues("unfollow").Inc()
	return nil
}

// IsFollowing reports whether viewer follows followeeID. The anonymous viewer
// follows nobody.
func (g *SocialGraph) IsFollowing(ctx context.Context, viewer *models.User, followeeID int) (bool, error) {
	if viewer == nil {
		return false, nil
	}
	return g.follows.Exists(ctx, viewer.ID, followeeID)
}

// FolloweesOf lists the ids userID follows.
func (g *SocialGraph) FolloweesOf(ctx context.Context, userID int) ([]int, error) {
	return g.follows.FolloweesOf(ctx, userID)
}

// Counts returns how many users follow userID and how many userID follows.
func (g *SocialGraph) Counts(ctx context.Context, userID int) (followers, following int, err error) {
	if followers, err = g.follows.CountFollowers(ctx, userID); err != nil {
		return 0, 0, err
	}
	if following, err = g.follows.CountFollowees(ctx, userID); err != nil {
		return 0, 0, err
	}
	return followers, following, nil
}
