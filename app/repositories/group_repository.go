package repositories

import (
	"context"
	"fmt"
	"sort"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerGroupRepository implements GroupRepository using BadgerDB
type BadgerGroupRepository struct {
	db *badger.DB
}

// NewBadgerGroupRepository creates a new BadgerGroupRepository
func NewBadgerGroupRepository(db *badger.DB) *BadgerGroupRepository {
	return &BadgerGroupRepository{db: db}
}

// Create stores a group; slugs are unique.
func (r *BadgerGroupRepository) Create(ctx context.Context, group *models.Group) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		taken, err := exists(txn, groupSlugKey(group.Slug))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("group slug %q: %w", group.Slug, ErrConflict)
		}

		id, err := getNextID(txn, GroupSeqKey)
		if err != nil {
			return err
		}
		group.ID = id

		data, err := marshalEntity(group)
		if err != nil {
			return err
		}
		if err := txn.Set(groupKey(id), data); err != nil {
			return err
		}
		return txn.Set(groupSlugKey(group.Slug), []byte(fmt.Sprint(id)))
	})
}

// GetByID retrieves a group by ID
func (r *BadgerGroupRepository) GetByID(ctx context.Context, id int) (*models.Group, error) {
	var group models.Group
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, groupKey(id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// GetBySlug resolves the slug index and loads the group.
func (r *BadgerGroupRepository) GetBySlug(ctx context.Context, slug string) (*models.Group, error) {
	var group models.Group
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		id, err := getInt(txn, groupSlugKey(slug))
		if err != nil {
			return err
		}
		return getEntity(txn, groupKey(id), &group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns every group ordered by title.
func (r *BadgerGroupRepository) List(ctx context.Context) ([]*models.Group, error) {
	var groups []*models.Group
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(GroupKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var group models.Group
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &group)
			})
			if err != nil {
				return err
			}
			groups = append(groups, &group)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Title < groups[j].Title })
	return groups, nil
}

// Delete removes the group; member posts stay and lose their group reference.
func (r *BadgerGroupRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var group models.Group
		if err := getEntity(txn, groupKey(id), &group); err != nil {
			return err
		}

		prefix := postGroupPrefix(id)
		for _, key := range keysWithPrefix(txn, prefix) {
			postID, err := idSuffix(key, prefix)
			if err != nil {
				return err
			}
			var post models.Post
			if err := getEntity(txn, postKey(postID), &post); err != nil {
				return err
			}
			post.GroupID = 0
			data, err := marshalEntity(&post)
			if err != nil {
				return err
			}
			if err := txn.Set(postKey(postID), data); err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		if err := txn.Delete(groupSlugKey(group.Slug)); err != nil {
			return err
		}
		return txn.Delete(groupKey(id))
	})
}
