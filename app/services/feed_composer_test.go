package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"blogfeed/app/forms"
	"blogfeed/app/models"
	"blogfeed/app/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalFeedNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	f.post(t, u1, "first", 1)
	f.post(t, u2, "third", 3)
	f.post(t, u1, "second", 2)

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second", "first"}, texts(page.Items))
	assert.Equal(t, "u2", page.Items[0].Author.Username)
}

func TestGlobalFeedContainsPostOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1 := f.user(t, "u1")

	_, err := f.posts.Create(ctx, u1, &forms.PostForm{Text: "Hello"}, nil)
	require.NoError(t, err)

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, texts(page.Items))
}

func TestGlobalFeedPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1 := f.user(t, "u1")
	for i := 1; i <= 23; i++ {
		f.post(t, u1, fmt.Sprintf("post %d", i), i)
	}

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, "post 23", page.Items[0].Text)
	assert.Equal(t, 3, page.TotalPages)

	last, err := f.feeds.Global(ctx, nil, 99)
	require.NoError(t, err)
	assert.Equal(t, 3, last.Number)
	assert.Equal(t, []string{"post 3", "post 2", "post 1"}, texts(last.Items))
}

func TestGlobalFeedIsCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Minute)
	u1 := f.user(t, "u1")
	f.post(t, u1, "before", 1)

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"before"}, texts(page.Items))

	f.post(t, u1, "after", 2)
	page, err = f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"before"}, texts(page.Items), "cached page hides the new post")

	require.NoError(t, f.feeds.InvalidateGlobal(ctx))
	page, err = f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"after", "before"}, texts(page.Items))
}

func TestGlobalFeedCacheExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 50*time.Millisecond)
	u1 := f.user(t, "u1")
	f.post(t, u1, "before", 1)

	_, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	f.post(t, u1, "after", 2)
	time.Sleep(120 * time.Millisecond)

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"after", "before"}, texts(page.Items))
}

func TestGlobalCacheKey(t *testing.T) {
	assert.Equal(t, "feed:global:viewer=anon:page=1", GlobalCacheKey(nil, 1))
	assert.Equal(t, "feed:global:viewer=7:page=2", GlobalCacheKey(&models.User{ID: 7}, 2))
}

func TestGroupFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1 := f.user(t, "u1")
	cats := f.group(t, "cats")

	inGroup := f.post(t, u1, "meow", 1)
	inGroup.GroupID = cats.ID
	require.NoError(t, f.store.Posts.Update(ctx, inGroup))
	f.post(t, u1, "woof", 2)

	feed, err := f.feeds.ByGroup(ctx, nil, "cats", 1)
	require.NoError(t, err)
	assert.Equal(t, "cats", feed.Group.Slug)
	assert.Equal(t, []string{"meow"}, texts(feed.Page.Items))
	assert.Equal(t, "cats", feed.Page.Items[0].Group.Slug)

	_, err = f.feeds.ByGroup(ctx, nil, "dogs", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

// missingGroups behaves as if every group had been deleted behind the posts' backs.
type missingGroups struct {
	repositories.GroupRepository
}

func (missingGroups) GetByID(ctx context.Context, id int) (*models.Group, error) {
	return nil, repositories.ErrNotFound
}

func TestFeedsSurviveMissingGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1 := f.user(t, "u1")
	cats := f.group(t, "cats")
	post := f.post(t, u1, "meow", 1)
	post.GroupID = cats.ID
	require.NoError(t, f.store.Posts.Update(ctx, post))

	f.store.Groups = missingGroups{f.store.Groups}

	page, err := f.feeds.Global(ctx, nil, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Nil(t, page.Items[0].Group)

	feed, err := f.feeds.ByAuthor(ctx, nil, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"meow"}, texts(feed.Page.Items))

	view, err := f.feeds.Post(ctx, nil, "u1", post.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Post.Group)
}

func TestAuthorFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	f.post(t, u1, "mine", 1)
	f.post(t, u2, "theirs", 2)
	require.NoError(t, f.graph.Follow(ctx, u2.ID, u1.ID))

	feed, err := f.feeds.ByAuthor(ctx, u2, "u1", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, texts(feed.Page.Items))
	assert.True(t, feed.Profile.Following)
	assert.False(t, feed.Profile.IsViewer)
	assert.Equal(t, 1, feed.Profile.Followers)
	assert.Equal(t, 1, feed.Profile.Posts)

	anon, err := f.feeds.ByAuthor(ctx, nil, "u1", 1)
	require.NoError(t, err)
	assert.False(t, anon.Profile.Following)

	self, err := f.feeds.ByAuthor(ctx, u1, "u1", 1)
	require.NoError(t, err)
	assert.True(t, self.Profile.IsViewer)

	_, err = f.feeds.ByAuthor(ctx, nil, "nobody", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFollowFeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2, u3 := f.user(t, "u1"), f.user(t, "u2"), f.user(t, "u3")
	require.NoError(t, f.graph.Follow(ctx, u2.ID, u1.ID))
	f.post(t, u1, "Feed test", 1)
	f.post(t, u3, "unrelated", 2)

	page, err := f.feeds.FollowSet(ctx, u2, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Feed test"}, texts(page.Items))

	page, err = f.feeds.FollowSet(ctx, u3, 1)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.Number)
	assert.False(t, page.HasNext)

	_, err = f.feeds.FollowSet(ctx, nil, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPostView(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	u1, u2 := f.user(t, "u1"), f.user(t, "u2")
	post := f.post(t, u1, "hello", 1)

	later := &models.Comment{PostID: post.ID, AuthorID: u2.ID, Text: "second", CreatedAt: base.Add(2 * time.Hour)}
	earlier := &models.Comment{PostID: post.ID, AuthorID: u1.ID, Text: "first", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, f.store.Comments.Create(ctx, later))
	require.NoError(t, f.store.Comments.Create(ctx, earlier))

	view, err := f.feeds.Post(ctx, u1, "u1", post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", view.Post.Text)
	assert.Equal(t, 2, view.Post.CommentCount)
	require.Len(t, view.Comments, 2)
	assert.Equal(t, "first", view.Comments[0].Text)
	assert.Equal(t, "u2", view.Comments[1].Author.Username)
	assert.True(t, view.CanEdit)

	view, err = f.feeds.Post(ctx, u2, "u1", post.ID)
	require.NoError(t, err)
	assert.False(t, view.CanEdit)

	_, err = f.feeds.Post(ctx, nil, "u2", post.ID)
	assert.ErrorIs(t, err, ErrNotFound, "post exists but not by u2")
	_, err = f.feeds.Post(ctx, nil, "u1", 404)
	assert.ErrorIs(t, err, ErrNotFound)
}
