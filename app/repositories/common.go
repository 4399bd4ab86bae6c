package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a uniqueness constraint would be violated or a
	// write transaction kept losing to concurrent writers.
	ErrConflict = errors.New("conflicting write")
)

const (
	// Key prefixes for different entity types
	UserKeyPrefix       = "user:"
	UsernameKeyPrefix   = "username:"
	GroupKeyPrefix      = "group:"
	GroupSlugKeyPrefix  = "groupslug:"
	PostKeyPrefix       = "post:"
	PostAuthorKeyPrefix = "postauthor:"
	PostGroupKeyPrefix  = "postgroup:"
	CommentKeyPrefix    = "comment:"
	FollowKeyPrefix     = "follow:"
	FollowerKeyPrefix   = "followedby:"
	SessionKeyPrefix    = "session:"

	// Sequence keys for auto-incrementing IDs
	UserSeqKey    = "seq:user"
	GroupSeqKey   = "seq:group"
	PostSeqKey    = "seq:post"
	CommentSeqKey = "seq:comment"

	maxTxnRetries = 5
)

// getNextID gets the next available ID for a given sequence key
func getNextID(txn *badger.Txn, seqKey string) (int, error) {
	var id int
	item, err := txn.Get([]byte(seqKey))
	if err == badger.ErrKeyNotFound {
		id = 1
	} else if err != nil {
		return 0, fmt.Errorf("failed to get sequence: %w", err)
	} else {
		err = item.Value(func(val []byte) error {
			id, err = strconv.Atoi(string(val))
			if err != nil {
				return fmt.Errorf("failed to parse sequence: %w", err)
			}
			id++
			return nil
		})
		if err != nil {
			return 0, err
		}
	}

	if err := txn.Set([]byte(seqKey), []byte(strconv.Itoa(id))); err != nil {
		return 0, fmt.Errorf("failed to update sequence: %w", err)
	}
	return id, nil
}

// update runs fn in a read-write transaction, retrying when badger reports that a
// concurrent transaction committed a conflicting write first.
func update(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt < maxTxnRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return ErrConflict
}

// view runs fn in a read-only transaction.
func view(ctx context.Context, db *badger.DB, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.View(fn)
}

// marshalEntity marshals an entity to JSON
func marshalEntity(entity interface{}) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entity: %w", err)
	}
	return data, nil
}

// unmarshalEntity unmarshals JSON data into an entity
func unmarshalEntity(data []byte, entity interface{}) error {
	if err := json.Unmarshal(data, entity); err != nil {
		return fmt.Errorf("failed to unmarshal entity: %w", err)
	}
	return nil
}

// getEntity loads the JSON value at key into entity, mapping a missing key to ErrNotFound.
func getEntity(txn *badger.Txn, key []byte, entity interface{}) error {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalEntity(val, entity)
	})
}

// getInt reads an integer stored as decimal text, such as an index entry.
func getInt(txn *badger.Txn, key []byte) (int, error) {
	var id int
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	err = item.Value(func(val []byte) error {
		id, err = strconv.Atoi(string(val))
		return err
	})
	return id, err
}

// exists reports whether key is present.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// mustExist fails with ErrNotFound unless key is present. The read joins the
// transaction's read set, so a concurrent delete of key makes the commit conflict.
func mustExist(txn *badger.Txn, key []byte) error {
	ok, err := exists(txn, key)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return nil
}

// postReferences checks the author and the optional group of post.
func postReferences(txn *badger.Txn, post *models.Post) error {
	if err := mustExist(txn, userKey(post.AuthorID)); err != nil {
		return err
	}
	if post.HasGroup() {
		return mustExist(txn, groupKey(post.GroupID))
	}
	return nil
}

// keysWithPrefix collects every key under prefix without reading values.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// idSuffix parses the trailing numeric segment of an index key like "postauthor:3:17".
func idSuffix(key []byte, prefix []byte) (int, error) {
	return strconv.Atoi(string(key[len(prefix):]))
}

func userKey(id int) []byte           { return []byte(fmt.Sprintf("%s%d", UserKeyPrefix, id)) }
func usernameKey(name string) []byte  { return []byte(UsernameKeyPrefix + name) }
func groupKey(id int) []byte          { return []byte(fmt.Sprintf("%s%d", GroupKeyPrefix, id)) }
func groupSlugKey(slug string) []byte { return []byte(GroupSlugKeyPrefix + slug) }
func postKey(id int) []byte           { return []byte(fmt.Sprintf("%s%d", PostKeyPrefix, id)) }

func postAuthorPrefix(authorID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", PostAuthorKeyPrefix, authorID))
}

func postGroupPrefix(groupID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", PostGroupKeyPrefix, groupID))
}

func commentPrefix(postID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", CommentKeyPrefix, postID))
}

func commentKey(postID, id int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", CommentKeyPrefix, postID, id))
}

func followPrefix(followerID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", FollowKeyPrefix, followerID))
}

func followKey(followerID, followeeID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", FollowKeyPrefix, followerID, followeeID))
}

func followerPrefix(followeeID int) []byte {
	return []byte(fmt.Sprintf("%s%d:", FollowerKeyPrefix, followeeID))
}

func followerKey(followeeID, followerID int) []byte {
	return []byte(fmt.Sprintf("%s%d:%d", FollowerKeyPrefix, followeeID, followerID))
}

func sessionKey(token string) []byte { return []byte(SessionKeyPrefix + token) }

// SortNewestFirst orders posts the way every feed lists them.
func SortNewestFirst(posts []*models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].NewerThan(posts[j])
	})
}

// SortOldestFirst orders comments in reading order.
func SortOldestFirst(comments []*models.Comment) {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].OlderThan(comments[j])
	})
}

func sortUsers(users []*models.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
}
