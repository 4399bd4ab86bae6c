package repositories

import (
	"context"
	"fmt"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerUserRepository implements UserRepository using BadgerDB
type BadgerUserRepository struct {
	db *badger.DB
}

// NewBadgerUserRepository creates a new BadgerUserRepository
func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// Create stores a new user. A taken username yields ErrConflict.
func (r *BadgerUserRepository) Create(ctx context.Context, user *models.User) error {
	user.BeforeCreate()
	return update(ctx, r.db, func(txn *badger.Txn) error {
		taken, err := exists(txn, usernameKey(user.Username))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("username %q: %w", user.Username, ErrConflict)
		}

		id, err := getNextID(txn, UserSeqKey)
		if err != nil {
			return err
		}
		user.ID = id

		data, err := marshalEntity(user)
		if err != nil {
			return err
		}
		if err := txn.Set(userKey(id), data); err != nil {
			return err
		}
		return txn.Set(usernameKey(user.Username), []byte(fmt.Sprint(id)))
	})
}

// GetByID retrieves a user by ID
func (r *BadgerUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	var user models.User
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByUsername resolves the username index and loads the user.
func (r *BadgerUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		id, err := getInt(txn, usernameKey(username))
		if err != nil {
			return err
		}
		return getEntity(txn, userKey(id), &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// List returns every user ordered by id.
func (r *BadgerUserRepository) List(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(UserKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var user models.User
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &user)
			})
			if err != nil {
				return err
			}
			users = append(users, &user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortUsers(users)
	return users, nil
}

// Delete removes the user and everything the user owns in one transaction.
func (r *BadgerUserRepository) Delete(ctx context.Context, id int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		var user models.User
		if err := getEntity(txn, userKey(id), &user); err != nil {
			return err
		}

		// Posts authored by the user, with their comments and index entries.
		authorPrefix := postAuthorPrefix(id)
		for _, key := range keysWithPrefix(txn, authorPrefix) {
			postID, err := idSuffix(key, authorPrefix)
			if err != nil {
				return err
			}
			if err := deletePostTxn(txn, postID); err != nil {
				return err
			}
		}

		// Comments the user left on other people's posts.
		if err := deleteCommentsByAuthorTxn(txn, id); err != nil {
			return err
		}

		// Follow edges in both directions.
		outPrefix := followPrefix(id)
		for _, key := range keysWithPrefix(txn, outPrefix) {
			followeeID, err := idSuffix(key, outPrefix)
			if err != nil {
				return err
			}
			if err := deleteFollowTxn(txn, id, followeeID); err != nil {
				return err
			}
		}
		inPrefix := followerPrefix(id)
		for _, key := range keysWithPrefix(txn, inPrefix) {
			followerID, err := idSuffix(key, inPrefix)
			if err != nil {
				return err
			}
			if err := deleteFollowTxn(txn, followerID, id); err != nil {
				return err
			}
		}

		if err := txn.Delete(usernameKey(user.Username)); err != nil {
			return err
		}
		return txn.Delete(userKey(id))
	})
}
