package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Memory is a process-local cache backed by ristretto.
type Memory struct {
	store *ristretto.Cache[string, []byte]
}

// NewMemory creates a cache bounded to maxBytes of values.
func NewMemory(maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	store, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 1e5,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &Memory{store: store}, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, ok := m.store.Get(key)
	return value, ok, nil
}

// Set blocks until the write is visible so a following Get sees it.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.store.SetWithTTL(key, value, int64(len(value)), ttl)
	m.store.Wait()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.store.Del(key)
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.store.Clear()
	return nil
}

func (m *Memory) Close() error {
	m.store.Close()
	return nil
}
