package repositories

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// OpenBadger opens the Badger database at path. An empty path opens an in-memory
// database, which is what the tests use.
func OpenBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.
		WithLogger(nil).
		WithNumVersionsToKeep(1)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

// NewBadgerStore wires every repository to the same Badger instance so cascades can
// run inside a single transaction.
func NewBadgerStore(db *badger.DB) *Store {
	return &Store{
		Users:    NewBadgerUserRepository(db),
		Groups:   NewBadgerGroupRepository(db),
		Posts:    NewBadgerPostRepository(db),
		Comments: NewBadgerCommentRepository(db),
		Follows:  NewBadgerFollowRepository(db),
		Sessions: NewBadgerSessionRepository(db),
	}
}
