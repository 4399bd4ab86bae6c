package services

import (
	"context"
	"testing"
	"time"

	"blogfeed/app/cache"
	"blogfeed/app/media"
	"blogfeed/app/models"
	"blogfeed/app/repositories"
	"blogfeed/app/repositories/mock"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store    *repositories.Store
	graph    *SocialGraph
	feeds    *FeedComposer
	posts    *PostService
	comments *CommentService
	users    *UserService
	groups   *GroupService
	cache    *cache.Memory
	media    string
}

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, cacheTTL time.Duration) *fixture {
	t.Helper()
	store := mock.NewStore()
	memory, err := cache.NewMemory(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { memory.Close() })

	mediaRoot := t.TempDir()
	mediaStore := media.NewStore(mediaRoot, 1<<20)
	graph := NewSocialGraph(store.Follows)
	users := NewUserService(store, mediaStore, time.Hour)
	users.hashCost = bcrypt.MinCost

	return &fixture{
		store:    store,
		graph:    graph,
		feeds:    NewFeedComposer(store, graph, memory, cacheTTL, 10),
		posts:    NewPostService(store, mediaStore),
		comments: NewCommentService(store),
		users:    users,
		groups:   NewGroupService(store.Groups),
		cache:    memory,
		media:    mediaRoot,
	}
}

func (f *fixture) user(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username}
	require.NoError(t, f.store.Users.Create(context.Background(), user))
	return user
}

func (f *fixture) group(t *testing.T, slug string) *models.Group {
	t.Helper()
	group, err := f.groups.Create(context.Background(), "Group "+slug, slug, "")
	require.NoError(t, err)
	return group
}

// post stores a post directly, minutesAfterBase minutes after the base time.
func (f *fixture) post(t *testing.T, author *models.User, text string, minutesAfterBase int) *models.Post {
	t.Helper()
	post := &models.Post{
		Text:      text,
		AuthorID:  author.ID,
		CreatedAt: base.Add(time.Duration(minutesAfterBase) * time.Minute),
	}
	require.NoError(t, f.store.Posts.Create(context.Background(), post))
	return post
}

func texts(items []PostItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Text
	}
	return out
}
