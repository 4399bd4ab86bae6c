package repositories

import (
	"context"
	"time"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerFollowRepository stores follow edges under follow:{follower}:{followee} with a
// mirror key followedby:{followee}:{follower}. The edge key is the pair itself, so two
// writers of the same pair can only ever produce one edge; badger's conflict
// detection forces the loser to retry and observe the winner's edge.
type BadgerFollowRepository struct {
	db *badger.DB
}

// NewBadgerFollowRepository creates a new BadgerFollowRepository
func NewBadgerFollowRepository(db *badger.DB) *BadgerFollowRepository {
	return &BadgerFollowRepository{db: db}
}

// Create writes the edge unless it already exists.
func (r *BadgerFollowRepository) Create(ctx context.Context, follow *models.Follow) (bool, error) {
	if err := follow.Validate(); err != nil {
		return false, err
	}
	var created bool
	err := update(ctx, r.db, func(txn *badger.Txn) error {
		created = false
		key := followKey(follow.FollowerID, follow.FolloweeID)
		ok, err := exists(txn, key)
		if err != nil || ok {
			return err
		}
		for _, id := range []int{follow.FollowerID, follow.FolloweeID} {
			ok, err := exists(txn, userKey(id))
			if err != nil {
				return err
			}
			if !ok {
				return ErrNotFound
			}
		}

		if follow.CreatedAt.IsZero() {
			follow.CreatedAt = time.Now().UTC()
		}
		data, err := marshalEntity(follow)
		if err != nil {
			return err
		}
		if err := txn.Set(key, data); err != nil {
			return err
		}
		if err := txn.Set(followerKey(follow.FolloweeID, follow.FollowerID), nil); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// Delete removes the edge if present.
func (r *BadgerFollowRepository) Delete(ctx context.Context, followerID, followeeID int) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return deleteFollowTxn(txn, followerID, followeeID)
	})
}

// Exists reports whether followerID follows followeeID.
func (r *BadgerFollowRepository) Exists(ctx context.Context, followerID, followeeID int) (bool, error) {
	var ok bool
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		var err error
		ok, err = exists(txn, followKey(followerID, followeeID))
		return err
	})
	return ok, err
}

// FolloweesOf lists the ids followerID follows.
func (r *BadgerFollowRepository) FolloweesOf(ctx context.Context, followerID int) ([]int, error) {
	var ids []int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		prefix := followPrefix(followerID)
		for _, key := range keysWithPrefix(txn, prefix) {
			id, err := idSuffix(key, prefix)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// CountFollowers counts edges pointing at followeeID.
func (r *BadgerFollowRepository) CountFollowers(ctx context.Context, followeeID int) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = len(keysWithPrefix(txn, followerPrefix(followeeID)))
		return nil
	})
	return n, err
}

// CountFollowees counts edges leaving followerID.
func (r *BadgerFollowRepository) CountFollowees(ctx context.Context, followerID int) (int, error) {
	var n int
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		n = len(keysWithPrefix(txn, followPrefix(followerID)))
		return nil
	})
	return n, err
}

func deleteFollowTxn(txn *badger.Txn, followerID, followeeID int) error {
	if err := txn.Delete(followKey(followerID, followeeID)); err != nil {
		return err
	}
	return txn.Delete(followerKey(followeeID, followerID))
}
