package services

import (
	"context"
	"sync"
	"testing"

	"blogfeed/app/models"
	"blogfeed/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	a, b := f.user(t, "a"), f.user(t, "b")

	require.NoError(t, f.graph.Follow(ctx, a.ID, b.ID))
	require.NoError(t, f.graph.Follow(ctx, a.ID, b.ID))

	followers, following, err := f.graph.Counts(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, followers)
	assert.Equal(t, 0, following)

	ok, err := f.graph.IsFollowing(ctx, a, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.graph.Unfollow(ctx, a.ID, b.ID))
	ok, err = f.graph.IsFollowing(ctx, a, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSelfFollowIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	a := f.user(t, "a")

	require.NoError(t, f.graph.Follow(ctx, a.ID, a.ID))

	ids, err := f.graph.FolloweesOf(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
	ok, err := f.graph.IsFollowing(ctx, a, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnfollowWithoutEdge(t *testing.T) {
	f := newFixture(t, 0)
	a, b := f.user(t, "a"), f.user(t, "b")
	assert.NoError(t, f.graph.Unfollow(context.Background(), a.ID, b.ID))
}

func TestIsFollowingAnonymous(t *testing.T) {
	f := newFixture(t, 0)
	b := f.user(t, "b")

	ok, err := f.graph.IsFollowing(context.Background(), nil, b.ID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFollowUnknownUser(t *testing.T) {
	f := newFixture(t, 0)
	a := f.user(t, "a")

	err := f.graph.Follow(context.Background(), a.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFolloweesOf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	a, b, c := f.user(t, "a"), f.user(t, "b"), f.user(t, "c")

	require.NoError(t, f.graph.Follow(ctx, a.ID, c.ID))
	require.NoError(t, f.graph.Follow(ctx, a.ID, b.ID))

	ids, err := f.graph.FolloweesOf(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{b.ID, c.ID}, ids)
}

// conflictingFollows loses every write race.
type conflictingFollows struct {
	repositories.FollowRepository
}

func (conflictingFollows) Exists(ctx context.Context, followerID, followeeID int) (bool, error) {
	return false, nil
}

func (conflictingFollows) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	return false, repositories.ErrConflict
}

func TestFollowAbsorbsConflict(t *testing.T) {
	graph := NewSocialGraph(conflictingFollows{})
	assert.NoError(t, graph.Follow(context.Background(), 1, 2))
}

func TestConcurrentFollowsConverge(t *testing.T) {
	ctx := context.Background()
	db, err := repositories.OpenBadger("")
	require.NoError(t, err)
	defer db.Close()
	store := repositories.NewBadgerStore(db)
	graph := NewSocialGraph(store.Follows)

	a, b := &models.User{Username: "a"}, &models.User{Username: "b"}
	require.NoError(t, store.Users.Create(ctx, a))
	require.NoError(t, store.Users.Create(ctx, b))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, graph.Follow(ctx, a.ID, b.ID))
		}()
	}
	wg.Wait()

	followers, err := store.Follows.CountFollowers(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, followers)
}
