package postgres

import (
	"context"
	"time"

	"blogfeed/app/models"
	"blogfeed/app/repositories"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct{ pool *pgxpool.Pool }

const userColumns = `id, username, first_name, last_name, email, password_hash, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.BeforeCreate()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, first_name, last_name, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		user.Username, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
	return translate(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

// Delete relies on ON DELETE CASCADE for posts, comments and follow edges.
func (r *UserRepository) Delete(ctx context.Context, id int) error {
	return notFoundUnlessDeleted(r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id))
}

type GroupRepository struct{ pool *pgxpool.Pool }

func scanGroup(row pgx.Row) (*models.Group, error) {
	var g models.Group
	if err := row.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (title, slug, description) VALUES ($1, $2, $3) RETURNING id`,
		group.Title, group.Slug, group.Description,
	).Scan(&group.ID)
	return translate(err)
}

func (r *GroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	return scanGroup(r.pool.QueryRow(ctx, `SELECT id, title, slug, description FROM groups WHERE id = $1`, id))
}

func (r *GroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	return scanGroup(r.pool.QueryRow(ctx, `SELECT id, title, slug, description FROM groups WHERE slug = $1`, slug))
}

func (r *GroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, title, slug, description FROM groups ORDER BY title, id`)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanGroup)
}

// Delete leaves member posts in place; the foreign key nulls their group.
func (r *GroupRepository) Delete(ctx context.Context, id int) error {
	return notFoundUnlessDeleted(r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id))
}

type PostRepository struct{ pool *pgxpool.Pool }

const (
	postColumns = `id, text, author_id, COALESCE(group_id, 0), image, created_at`
	newestFirst = ` ORDER BY created_at DESC, id DESC`
)

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	if err := row.Scan(&p.ID, &p.Text, &p.AuthorID, &p.GroupID, &p.Image, &p.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO posts (text, author_id, group_id, image, created_at)
		 VALUES ($1, $2, NULLIF($3, 0), $4, $5) RETURNING id`,
		post.Text, post.AuthorID, post.GroupID, post.Image, post.CreatedAt,
	).Scan(&post.ID)
	return translate(err)
}

func (r *PostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

func (r *PostRepository) query(ctx context.Context, where string, args ...any) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts `+where+newestFirst, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPost)
}

func (r *PostRepository) List(ctx context.Context) ([]*models.Post, error) {
	return r.query(ctx, "")
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID int) ([]*models.Post, error) {
	return r.query(ctx, `WHERE author_id = $1`, authorID)
}

func (r *PostRepository) ListByAuthors(ctx context.Context, authorIDs []int) ([]*models.Post, error) {
	if len(authorIDs) == 0 {
		return []*models.Post{}, nil
	}
	return r.query(ctx, `WHERE author_id = ANY($1)`, authorIDs)
}

func (r *PostRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.Post, error) {
	return r.query(ctx, `WHERE group_id = $1`, groupID)
}

// Update rewrites text, group and image. Author and creation time stay as stored.
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE posts SET text = $2, group_id = NULLIF($3, 0), image = $4
		 WHERE id = $1 RETURNING author_id, created_at`,
		post.ID, post.Text, post.GroupID, post.Image,
	).Scan(&post.AuthorID, &post.CreatedAt)
	return translate(err)
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	return notFoundUnlessDeleted(r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id))
}

type CommentRepository struct{ pool *pgxpool.Pool }

func scanComment(row pgx.Row) (*models.Comment, error) {
	var c models.Comment
	if err := row.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Text, &c.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO comments (post_id, author_id, text, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		comment.PostID, comment.AuthorID, comment.Text, comment.CreatedAt,
	).Scan(&comment.ID)
	return translate(err)
}

func (r *CommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	return scanComment(r.pool.QueryRow(ctx,
		`SELECT id, post_id, author_id, text, created_at FROM comments WHERE id = $1`, id))
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, post_id, author_id, text, created_at FROM comments
		 WHERE post_id = $1 ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanComment)
}

func (r *CommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM comments WHERE post_id = $1`, postID).Scan(&n)
	return n, err
}

func (r *CommentRepository) Delete(ctx context.Context, id int) error {
	return notFoundUnlessDeleted(r.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id))
}

type FollowRepository struct{ pool *pgxpool.Pool }

// Create inserts the edge; a concurrent or repeated insert of the same pair is
// swallowed by the unique constraint.
func (r *FollowRepository) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	if err := follow.Validate(); err != nil {
		return false, err
	}
	if follow.CreatedAt.IsZero() {
		follow.CreatedAt = time.Now().UTC()
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO follows (follower_id, followee_id, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		follow.FollowerID, follow.FolloweeID, follow.CreatedAt)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *FollowRepository) Delete(ctx context.Context, followerID, followeeID int) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, followeeID)
	return err
}

func (r *FollowRepository) Exists(ctx context.Context, followerID, followeeID int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID).Scan(&exists)
	return exists, err
}

func (r *FollowRepository) FolloweesOf(ctx context.Context, followerID int) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY followee_id`, followerID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int])
}

func (r *FollowRepository) CountFollowers(ctx context.Context, followeeID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM follows WHERE followee_id = $1`, followeeID).Scan(&n)
	return n, err
}

func (r *FollowRepository) CountFollowees(ctx context.Context, followerID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM follows WHERE follower_id = $1`, followerID).Scan(&n)
	return n, err
}

type SessionRepository struct{ pool *pgxpool.Pool }

func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		session.Token, session.UserID, session.ExpiresAt)
	return translate(err)
}

func (r *SessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	var s models.Session
	err := r.pool.QueryRow(ctx,
		`SELECT token, user_id, expires_at FROM sessions WHERE token = $1 AND expires_at > now()`, token,
	).Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

var (
	_ repositories.UserRepository    = (*UserRepository)(nil)
	_ repositories.GroupRepository   = (*GroupRepository)(nil)
	_ repositories.PostRepository    = (*PostRepository)(nil)
	_ repositories.CommentRepository = (*CommentRepository)(nil)
	_ repositories.FollowRepository  = (*FollowRepository)(nil)
	_ repositories.SessionRepository = (*SessionRepository)(nil)
)
