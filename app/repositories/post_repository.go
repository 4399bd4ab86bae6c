package repositories

import (
	"context"
	"fmt"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPostRepository implements PostRepository using BadgerDB. Besides the post
// record it maintains postauthor: and postgroup: index keys so scoped feeds never
// scan the whole post keyspace.
type BadgerPostRepository struct {
	db *badger.DB
}

// NewBadgerPostRepository creates a new BadgerPostRepository
func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

// Create creates a new post. Its author and group must exist.
func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	post.BeforeCreate()
	return update(ctx, r.db, func(txn *badger.Txn) error {
		if err := postReferences(txn, post); err != nil {
			return err
		}

		id, err := getNextID(txn, PostSeqKey)
		if err != nil {
			return err
		}
		post.ID = id

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		if err := txn.Set(postKey(id), data); err != nil {
			return err
		}
		return writePostIndexes(txn, post)
	})
}

// GetByID retrieves a post by ID
func (r *BadgerPostRepository) GetByID(ctx context.Context, id int) (*models.Post, error) {
	var post models.Post
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// List returns every post, newest first.
func (r *BadgerPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal post: %w", err)
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(posts)
	return posts, nil
}

// ListByAuthor returns the author's posts, newest first.
func (r *BadgerPostRepository) ListByAuthor(ctx context.Context, authorID int) ([]*models.Post, error) {
	return r.ListByAuthors(ctx, []int{authorID})
}

// ListByAuthors returns the posts of any of the given authors, newest first.
func (r *BadgerPostRepository) ListByAuthors(ctx context.Context, authorIDs []int) ([]*models.Post, error) {
	var posts []*models.Post
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		for _, authorID := range authorIDs {
			found, err := postsByIndex(txn, postAuthorPrefix(authorID))
			if err != nil {
				return err
			}
			posts = append(posts, found...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(posts)
	return posts, nil
}

// ListByGroup returns the group's posts, newest first.
func (r *BadgerPostRepository) ListByGroup(ctx context.Context, groupID int) ([]*models.Post, error) {
	var posts []*models.Post
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		posts, err = postsByIndex(txn, postGroupPrefix(groupID))
		return err
	})
	if err != nil {
		return nil, err
	}
	SortNewestFirst(posts)
	return posts, nil
}

// Update updates an existing post. Author and creation time are kept from the
// stored record whatever the caller passes in.
func (r *BadgerPostRepository) Update(ctx context.Context, post *models.Post) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var existing models.Post
		if err := getEntity(txn, postKey(post.ID), &existing); err != nil {
			return err
		}
		post.AuthorID = existing.AuthorID
		post.CreatedAt = existing.CreatedAt
		if err := postReferences(txn, post); err != nil {
			return err
		}

		if existing.GroupID != post.GroupID && existing.HasGroup() {
			if err := txn.Delete(postGroupKey(existing.GroupID, existing.ID)); err != nil {
				return err
			}
		}

		data, err := marshalEntity(post)
		if err != nil {
			return err
		}
		if err := txn.Set(postKey(post.ID), data); err != nil {
			return err
		}
		return writePostIndexes(txn, post)
	})
}

// Delete deletes a post by ID along with its comments.
func (r *BadgerPostRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return deletePostTxn(txn, id)
	})
}

func postAuthorKey(authorID, postID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", PostAuthorKeyPrefix, authorID, postID))
}

func postGroupKey(groupID, postID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", PostGroupKeyPrefix, groupID, postID))
}

func writePostIndexes(txn *badger.Txn, post *models.Post) error {
	if err := txn.Set(postAuthorKey(post.AuthorID, post.ID), nil); err != nil {
		return err
	}
	if post.HasGroup() {
		return txn.Set(postGroupKey(post.GroupID, post.ID), nil)
	}
	return nil
}

// postsByIndex loads the posts referenced by the index keys under prefix.
func postsByIndex(txn *badger.Txn, prefix []byte) ([]*models.Post, error) {
	var posts []*models.Post
	for _, key := range keysWithPrefix(txn, prefix) {
		postID, err := idSuffix(key, prefix)
		if err != nil {
			return nil, err
		}
		var post models.Post
		if err := getEntity(txn, postKey(postID), &post); err != nil {
			return nil, fmt.Errorf("post %d from index %s: %w", postID, prefix, err)
		}
		posts = append(posts, &post)
	}
	return posts, nil
}

// deletePostTxn removes a post, its index keys, and its comments.
func deletePostTxn(txn *badger.Txn, id int) error {
	var post models.Post
	if err := getEntity(txn, postKey(id), &post); err != nil {
		return err
	}
	for _, key := range keysWithPrefix(txn, commentPrefix(id)) {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	if err := txn.Delete(postAuthorKey(post.AuthorID, id)); err != nil {
		return err
	}
	if post.HasGroup() {
		if err := txn.Delete(postGroupKey(post.GroupID, id)); err != nil {
			return err
		}
	}
	return txn.Delete(postKey(id))
}
