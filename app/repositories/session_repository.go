package repositories

import (
	"context"
	"time"

	"blogfeed/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerSessionRepository stores sessions as entries with a badger TTL, so expired
// sessions disappear without a sweeper.
type BadgerSessionRepository struct {
	db *badger.DB
}

// NewBadgerSessionRepository creates a new BadgerSessionRepository
func NewBadgerSessionRepository(db *badger.DB) *BadgerSessionRepository {
	return &BadgerSessionRepository{db: db}
}

// Create stores the session until its expiry.
func (r *BadgerSessionRepository) Create(ctx context.Context, session *models.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	data, err := marshalEntity(session)
	if err != nil {
		return err
	}
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(sessionKey(session.Token), data).WithTTL(ttl))
	})
}

// Get loads a live session.
func (r *BadgerSessionRepository) Get(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := view(ctx, r.db, func(txn *badger.Txn) error {
		return getEntity(txn, sessionKey(token), &session)
	})
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, ErrNotFound
	}
	return &session, nil
}

// Delete ends a session.
func (r *BadgerSessionRepository) Delete(ctx context.Context, token string) error {
	return update(ctx, r.db, func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(token))
	})
}
