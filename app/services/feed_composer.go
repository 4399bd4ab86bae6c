package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogfeed/app/cache"
	"blogfeed/app/media"
	"blogfeed/app/models"
	"blogfeed/app/monitoring"
	"blogfeed/app/pagination"
	"blogfeed/app/repositories"

	log "github.com/sirupsen/logrus"
)

// Author is the public face of a user: what feeds and pages may show.
type Author struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

func authorOf(u *models.User) Author {
	return Author{ID: u.ID, Username: u.Username, FullName: u.FullName()}
}

// PostItem is a post hydrated for display.
type PostItem struct {
	ID           int           `json:"id"`
	Text         string        `json:"text"`
	CreatedAt    time.Time     `json:"created_at"`
	ImageURL     string        `json:"image_url,omitempty"`
	Author       Author        `json:"author"`
	Group        *models.Group `json:"group,omitempty"`
	CommentCount int           `json:"comment_count"`
}

// CommentItem is a comment hydrated with its author.
type CommentItem struct {
	ID        int       `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Author    Author    `json:"author"`
}

// Profile describes an author and the viewer's relation to them.
type Profile struct {
	Author    Author `json:"author"`
	Following bool   `json:"following"`
	IsViewer  bool   `json:"is_viewer"`
	Followers int    `json:"followers_count"`
	Follows   int    `json:"following_count"`
	Posts     int    `json:"posts_count"`
}

// GroupFeed is one page of a group's posts.
type GroupFeed struct {
	Group *models.Group             `json:"group"`
	Page  pagination.Page[PostItem] `json:"page"`
}

// AuthorFeed is one page of an author's posts with their profile.
type AuthorFeed struct {
	Profile Profile                   `json:"profile"`
	Page    pagination.Page[PostItem] `json:"page"`
}

// PostView is a single post with its comments oldest first.
type PostView struct {
	Post     PostItem      `json:"post"`
	Comments []CommentItem `json:"comments"`
	Profile  Profile       `json:"profile"`
	CanEdit  bool          `json:"can_edit"`
}

// FeedComposer builds the reverse-chronological post listings.
type FeedComposer struct {
	store    *repositories.Store
	graph    *SocialGraph
	cache    cache.Cache
	cacheTTL time.Duration
	pageSize int
}

// NewFeedComposer creates a composer. The global feed is served through c for
// cacheTTL; a nil cache or a non-positive ttl disables caching.
func NewFeedComposer(store *repositories.Store, graph *SocialGraph, c cache.Cache, cacheTTL time.Duration, pageSize int) *FeedComposer {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	return &FeedComposer{
		store:    store,
		graph:    graph,
		cache:    c,
		cacheTTL: cacheTTL,
		pageSize: pageSize,
	}
}

// GlobalCacheKey is the cache key of one page of the global feed as seen by viewer.
func GlobalCacheKey(viewer *models.User, page int) string {
	who := "anon"
	if viewer != nil {
		who = fmt.Sprint(viewer.ID)
	}
	return fmt.Sprintf("feed:global:viewer=%s:page=%d", who, page)
}

// Global returns a page of every post. Results may be up to the cache ttl old.
func (f *FeedComposer) Global(ctx context.Context, viewer *models.User, page int) (pagination.Page[PostItem], error) {
	hit := true
	result, err := cache.Remember(ctx, f.cache, GlobalCacheKey(viewer, page), f.cacheTTL,
		func() (pagination.Page[PostItem], error) {
			hit = false
			posts, err := f.store.Posts.List(ctx)
			if err != nil {
				return pagination.Page[PostItem]{}, fmt.Errorf("list posts: %w", err)
			}
			return f.page(ctx, posts, page)
		})
	if err == nil && f.cache != nil && f.cacheTTL > 0 {
		if hit {
			monitoring.FeedCacheLookups.WithLabelValues("hit").Inc()
		} else {
			monitoring.FeedCacheLookups.WithLabelValues("miss").Inc()
		}
	}
	return result, err
}

// InvalidateGlobal drops every cached global feed page.
func (f *FeedComposer) InvalidateGlobal(ctx context.Context) error {
	if f.cache == nil {
		return nil
	}
	return f.cache.Clear(ctx)
}

// ByGroup returns a page of the posts filed under slug.
func (f *FeedComposer) ByGroup(ctx context.Context, viewer *models.User, slug string, page int) (*GroupFeed, error) {
	group, err := f.store.Groups.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("group %q: %w", slug, err)
	}
	posts, err := f.store.Posts.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, fmt.Errorf("list group posts: %w", err)
	}
	items, err := f.page(ctx, posts, page)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: items}, nil
}

// ByAuthor returns a page of username's posts annotated with the viewer's
// follow status.
func (f *FeedComposer) ByAuthor(ctx context.Context, viewer *models.User, username string, page int) (*AuthorFeed, error) {
	author, err := f.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", username, err)
	}
	posts, err := f.store.Posts.ListByAuthor(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("list author posts: %w", err)
	}
	profile, err := f.profile(ctx, viewer, author, len(posts))
	if err != nil {
		return nil, err
	}
	items, err := f.page(ctx, posts, page)
	if err != nil {
		return nil, err
	}
	return &AuthorFeed{Profile: profile, Page: items}, nil
}

// FollowSet returns a page of posts by everyone the viewer follows.
func (f *FeedComposer) FollowSet(ctx context.Context, viewer *models.User, page int) (pagination.Page[PostItem], error) {
	if viewer == nil {
		return pagination.Page[PostItem]{}, ErrUnauthorized
	}
	followees, err := f.graph.FolloweesOf(ctx, viewer.ID)
	if err != nil {
		return pagination.Page[PostItem]{}, fmt.Errorf("list followees: %w", err)
	}
	posts, err := f.store.Posts.ListByAuthors(ctx, followees)
	if err != nil {
		return pagination.Page[PostItem]{}, fmt.Errorf("list followed posts: %w", err)
	}
	return f.page(ctx, posts, page)
}

// Post returns the post postID if it was written by username.
func (f *FeedComposer) Post(ctx context.Context, viewer *models.User, username string, postID int) (*PostView, error) {
	author, post, err := lookupAuthoredPost(ctx, f.store, username, postID)
	if err != nil {
		return nil, err
	}
	items, err := f.hydrate(ctx, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	comments, err := f.comments(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	postCount, err := f.countPosts(ctx, author.ID)
	if err != nil {
		return nil, err
	}
	profile, err := f.profile(ctx, viewer, author, postCount)
	if err != nil {
		return nil, err
	}
	return &PostView{
		Post:     items[0],
		Comments: comments,
		Profile:  profile,
		CanEdit:  viewer.Is(author),
	}, nil
}

// lookupAuthoredPost loads a post and checks it belongs to username. A post
// by somebody else is reported as not found.
func lookupAuthoredPost(ctx context.Context, store *repositories.Store, username string, postID int) (*models.User, *models.Post, error) {
	author, err := store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, nil, fmt.Errorf("user %q: %w", username, err)
	}
	post, err := store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("post %d: %w", postID, err)
	}
	if post.AuthorID != author.ID {
		return nil, nil, fmt.Errorf("post %d by %q: %w", postID, username, ErrNotFound)
	}
	return author, post, nil
}

func (f *FeedComposer) page(ctx context.Context, posts []*models.Post, number int) (pagination.Page[PostItem], error) {
	page := pagination.Paginate(posts, f.pageSize, number)
	items, err := f.hydrate(ctx, page.Items)
	if err != nil {
		return pagination.Page[PostItem]{}, err
	}
	return pagination.WithItems(page, items), nil
}

// hydrate attaches authors, groups and comment counts, loading each user and
// group once per call.
func (f *FeedComposer) hydrate(ctx context.Context, posts []*models.Post) ([]PostItem, error) {
	users := make(map[int]*models.User)
	groups := make(map[int]*models.Group)
	items := make([]PostItem, 0, len(posts))

	for _, post := range posts {
		author, ok := users[post.AuthorID]
		if !ok {
			var err error
			if author, err = f.store.Users.GetByID(ctx, post.AuthorID); err != nil {
				return nil, fmt.Errorf("author of post %d: %w", post.ID, err)
			}
			users[post.AuthorID] = author
		}

		var group *models.Group
		if post.HasGroup() {
			if group, ok = groups[post.GroupID]; !ok {
				var err error
				group, err = f.store.Groups.GetByID(ctx, post.GroupID)
				if errors.Is(err, repositories.ErrNotFound) {
					log.WithFields(log.Fields{"post": post.ID, "group": post.GroupID}).Warn("post refers to a missing group")
					group, err = nil, nil
				}
				if err != nil {
					return nil, fmt.Errorf("group of post %d: %w", post.ID, err)
				}
				groups[post.GroupID] = group
			}
		}

		count, err := f.store.Comments.CountByPost(ctx, post.ID)
		if err != nil {
			return nil, fmt.Errorf("count comments of post %d: %w", post.ID, err)
		}

		items = append(items, PostItem{
			ID:           post.ID,
			Text:         post.Text,
			CreatedAt:    post.CreatedAt,
			ImageURL:     media.URL(post.Image),
			Author:       authorOf(author),
			Group:        group,
			CommentCount: count,
		})
	}
	return items, nil
}

func (f *FeedComposer) comments(ctx context.Context, postID int) ([]CommentItem, error) {
	comments, err := f.store.Comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	users := make(map[int]*models.User)
	items := make([]CommentItem, 0, len(comments))
	for _, c := range comments {
		author, ok := users[c.AuthorID]
		if !ok {
			if author, err = f.store.Users.GetByID(ctx, c.AuthorID); err != nil {
				return nil, fmt.Errorf("author of comment %d: %w", c.ID, err)
			}
			users[c.AuthorID] = author
		}
		items = append(items, CommentItem{ID: c.ID, Text: c.Text, CreatedAt: c.CreatedAt, Author: authorOf(author)})
	}
	return items, nil
}

func (f *FeedComposer) countPosts(ctx context.Context, authorID int) (int, error) {
	posts, err := f.store.Posts.ListByAuthor(ctx, authorID)
	if err != nil {
		return 0, fmt.Errorf("list author posts: %w", err)
	}
	return len(posts), nil
}

func (f *FeedComposer) profile(ctx context.Context, viewer, author *models.User, postCount int) (Profile, error) {
	following, err := f.graph.IsFollowing(ctx, viewer, author.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("follow status: %w", err)
	}
	followers, follows, err := f.graph.Counts(ctx, author.ID)
	if err != nil {
		return Profile{}, fmt.Errorf("follow counts: %w", err)
	}
	return Profile{
		Author:    authorOf(author),
		Following: following,
		IsViewer:  viewer.Is(author),
		Followers: followers,
		Follows:   follows,
		Posts:     postCount,
	}, nil
}
