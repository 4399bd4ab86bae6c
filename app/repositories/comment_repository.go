package repositories

import (
	"context"
	"fmt"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCommentRepository implements CommentRepository using BadgerDB
type BadgerCommentRepository struct {
	db *badger.DB
}

// NewBadgerCommentRepository creates a new BadgerCommentRepository
func NewBadgerCommentRepository(db *badger.DB) *BadgerCommentRepository {
	return &BadgerCommentRepository{db: db}
}

// Create creates a new comment. The parent post and the author must exist.
func (r *BadgerCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	comment.BeforeCreate()
	return update(ctx, r.db, func(txn *badger.Txn) error {
		ok, err := exists(txn, postKey(comment.PostID))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("post %d: %w", comment.PostID, ErrNotFound)
		}
		if err := mustExist(txn, userKey(comment.AuthorID)); err != nil {
			return err
		}

		id, err := getNextID(txn, CommentSeqKey)
		if err != nil {
			return err
		}
		comment.ID = id

		data, err := marshalEntity(comment)
		if err != nil {
			return err
		}

		// Save comment with post ID in key for efficient listing
		return txn.Set(commentKey(comment.PostID, comment.ID), data)
	})
}

// GetByID retrieves a comment by ID
func (r *BadgerCommentRepository) GetByID(ctx context.Context, id int) (*models.Comment, error) {
	var found *models.Comment
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		comment, _, err := findCommentTxn(txn, id)
		found = comment
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// ListByPost retrieves all comments for a post, oldest first.
func (r *BadgerCommentRepository) ListByPost(ctx context.Context, postID int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := commentPrefix(postID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var comment models.Comment
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return fmt.Errorf("failed to unmarshal comment: %w", err)
			}
			comments = append(comments, &comment)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	SortOldestFirst(comments)
	return comments, nil
}

// CountByPost counts comment keys without decoding them.
func (r *BadgerCommentRepository) CountByPost(ctx context.Context, postID int) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = len(keysWithPrefix(txn, commentPrefix(postID)))
		return nil
	})
	return n, err
}

// Delete deletes a comment by ID
func (r *BadgerCommentRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		_, key, err := findCommentTxn(txn, id)
		if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

// findCommentTxn scans the comment keyspace for id, since comment keys are grouped
// by post rather than by comment id.
func findCommentTxn(txn *badger.Txn, id int) (*models.Comment, []byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	prefix := []byte(CommentKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var comment models.Comment
		err := item.Value(func(val []byte) error {
			return unmarshalEntity(val, &comment)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to unmarshal comment: %w", err)
		}
		if comment.ID == id {
			return &comment, item.KeyCopy(nil), nil
		}
	}
	return nil, nil, ErrNotFound
}

// deleteCommentsByAuthorTxn removes every comment written by authorID.
func deleteCommentsByAuthorTxn(txn *badger.Txn, authorID int) error {
	var keys [][]byte
	err := func() error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(CommentKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var comment models.Comment
			err := item.Value(func(val []byte) error {
				return unmarshalEntity(val, &comment)
			})
			if err != nil {
				return err
			}
			if comment.AuthorID == authorID {
				keys = append(keys, item.KeyCopy(nil))
			}
		}
		return nil
	}()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
