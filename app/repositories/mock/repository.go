package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"blogfeed/app/models"
	"blogfeed/app/repositories"
)

// db is the shared in-memory state behind every mock repository, so cascades behave
// like the real stores.
type db struct {
	mutex    sync.RWMutex
	users    map[int]*models.User
	groups   map[int]*models.Group
	posts    map[int]*models.Post
	comments map[int]*models.Comment
	follows  map[[2]int]*models.Follow
	sessions map[string]*models.Session
	nextID   map[string]int
}

func (d *db) next(kind string) int {
	d.nextID[kind]++
	return d.nextID[kind]
}

type UserRepository struct{ *db }
type GroupRepository struct{ *db }
type PostRepository struct{ *db }
type CommentRepository struct{ *db }
type FollowRepository struct{ *db }
type SessionRepository struct{ *db }

// NewStore returns a repositories.Store backed by maps.
func NewStore() *repositories.Store {
	d := &db{
		users:    make(map[int]*models.User),
		groups:   make(map[int]*models.Group),
		posts:    make(map[int]*models.Post),
		comments: make(map[int]*models.Comment),
		follows:  make(map[[2]int]*models.Follow),
		sessions: make(map[string]*models.Session),
		nextID:   make(map[string]int),
	}
	return &repositories.Store{
		Users:    &UserRepository{d},
		Groups:   &GroupRepository{d},
		Posts:    &PostRepository{d},
		Comments: &CommentRepository{d},
		Follows:  &FollowRepository{d},
		Sessions: &SessionRepository{d},
	}
}

// UserRepository implementation
func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, repositories.ErrConflict)
		}
	}
	user.BeforeCreate()
	user.ID = m.next("user")
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	user, exists := m.users[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	users := make([]*models.User, 0, len(m.users))
	for _, user := range m.users {
		copied := *user
		users = append(users, &copied)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *UserRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.users[id]; !exists {
		return repositories.ErrNotFound
	}
	for postID, post := range m.posts {
		if post.AuthorID == id {
			m.deletePost(postID)
		}
	}
	for commentID, comment := range m.comments {
		if comment.AuthorID == id {
			delete(m.comments, commentID)
		}
	}
	for pair := range m.follows {
		if pair[0] == id || pair[1] == id {
			delete(m.follows, pair)
		}
	}
	delete(m.users, id)
	return nil
}

// GroupRepository implementation
func (m *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, g := range m.groups {
		if g.Slug == group.Slug {
			return fmt.Errorf("group slug %q: %w", group.Slug, repositories.ErrConflict)
		}
	}
	group.ID = m.next("group")
	stored := *group
	m.groups[group.ID] = &stored
	return nil
}

func (m *GroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	group, exists := m.groups[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *group
	return &copied, nil
}

func (m *GroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for _, group := range m.groups {
		if group.Slug == slug {
			copied := *group
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *GroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	groups := make([]*models.Group, 0, len(m.groups))
	for _, group := range m.groups {
		copied := *group
		groups = append(groups, &copied)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

func (m *GroupRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.groups[id]; !exists {
		return repositories.ErrNotFound
	}
	for _, post := range m.posts {
		if post.GroupID == id {
			post.GroupID = 0
		}
	}
	delete(m.groups, id)
	return nil
}

// PostRepository implementation
func (m *PostRepository) Create(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := m.references(post); err != nil {
		return err
	}
	post.BeforeCreate()
	post.ID = m.next("post")
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	post, exists := m.posts[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (m *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	return m.filter(func(*models.Post) bool { return true }), nil
}

func (m *PostRepository) ListByAuthor(ctx context.Context, authorID int) ([]*models.Post, error) {
	return m.filter(func(p *models.Post) bool { return p.AuthorID == authorID }), nil
}

func (m *PostRepository) ListByAuthors(ctx context.Context, authorIDs []int) ([]*models.Post, error) {
	wanted := make(map[int]bool, len(authorIDs))
	for _, id := range authorIDs {
		wanted[id] = true
	}
	return m.filter(func(p *models.Post) bool { return wanted[p.AuthorID] }), nil
}

func (m *PostRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.Post, error) {
	return m.filter(func(p *models.Post) bool { return p.GroupID == groupID }), nil
}

func (m *PostRepository) Update(ctx context.Context, post *models.Post) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	existing, exists := m.posts[post.ID]
	if !exists {
		return repositories.ErrNotFound
	}
	post.AuthorID = existing.AuthorID
	post.CreatedAt = existing.CreatedAt
	if err := m.references(post); err != nil {
		return err
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *PostRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[id]; !exists {
		return repositories.ErrNotFound
	}
	m.deletePost(id)
	return nil
}

func (m *PostRepository) filter(keep func(*models.Post) bool) []*models.Post {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	posts := []*models.Post{}
	for _, post := range m.posts {
		if keep(post) {
			copied := *post
			posts = append(posts, &copied)
		}
	}
	repositories.SortNewestFirst(posts)
	return posts
}

// references expects the lock to be held.
func (d *db) references(post *models.Post) error {
	if _, exists := d.users[post.AuthorID]; !exists {
		return fmt.Errorf("user %d: %w", post.AuthorID, repositories.ErrNotFound)
	}
	if _, exists := d.groups[post.GroupID]; post.HasGroup() && !exists {
		return fmt.Errorf("group %d: %w", post.GroupID, repositories.ErrNotFound)
	}
	return nil
}

// deletePost expects the write lock to be held.
func (d *db) deletePost(id int) {
	for commentID, comment := range d.comments {
		if comment.PostID == id {
			delete(d.comments, commentID)
		}
	}
	delete(d.posts, id)
}

// CommentRepository implementation
func (m *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.posts[comment.PostID]; !exists {
		return fmt.Errorf("post %d: %w", comment.PostID, repositories.ErrNotFound)
	}
	if _, exists := m.users[comment.AuthorID]; !exists {
		return fmt.Errorf("user %d: %w", comment.AuthorID, repositories.ErrNotFound)
	}
	comment.BeforeCreate()
	comment.ID = m.next("comment")
	stored := *comment
	m.comments[comment.ID] = &stored
	return nil
}

func (m *CommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comment, exists := m.comments[id]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	copied := *comment
	return &copied, nil
}

func (m *CommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	comments := []*models.Comment{}
	for _, comment := range m.comments {
		if comment.PostID == postID {
			copied := *comment
			comments = append(comments, &copied)
		}
	}
	repositories.SortOldestFirst(comments)
	return comments, nil
}

func (m *CommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	comments, err := m.ListByPost(ctx, postID)
	return len(comments), err
}

func (m *CommentRepository) Delete(ctx context.Context, id int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.comments[id]; !exists {
		return repositories.ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

// FollowRepository implementation
func (m *FollowRepository) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	if err := follow.Validate(); err != nil {
		return false, err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	pair := [2]int{follow.FollowerID, follow.FolloweeID}
	if _, exists := m.follows[pair]; exists {
		return false, nil
	}
	if m.users[follow.FollowerID] == nil || m.users[follow.FolloweeID] == nil {
		return false, repositories.ErrNotFound
	}
	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now().UTC()
	}
	stored := *follow
	m.follows[pair] = &stored
	return true, nil
}

func (m *FollowRepository) Delete(ctx context.Context, followerID, followeeID int) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.follows, [2]int{followerID, followeeID})
	return nil
}

func (m *FollowRepository) Exists(ctx context.Context, followerID, followeeID int) (bool, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, exists := m.follows[[2]int{followerID, followeeID}]
	return exists, nil
}

func (m *FollowRepository) FolloweesOf(ctx context.Context, followerID int) ([]int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var ids []int
	for pair := range m.follows {
		if pair[0] == followerID {
			ids = append(ids, pair[1])
		}
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *FollowRepository) CountFollowers(ctx context.Context, followeeID int) (int, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	n := 0
	for pair := range m.follows {
		if pair[1] == followeeID {
			n++
		}
	}
	return n, nil
}

func (m *FollowRepository) CountFollowees(ctx context.Context, followerID int) (int, error) {
	ids, err := m.FolloweesOf(ctx, followerID)
	return len(ids), err
}

// SessionRepository implementation
func (m *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stored := *session
	m.sessions[session.Token] = &stored
	return nil
}

func (m *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	session, exists := m.sessions[token]
	if !exists || session.Expired(time.Now()) {
		return nil, repositories.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *SessionRepository) Delete(ctx context.Context, token string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.sessions, token)
	return nil
}
