package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type InmemoryStore struct {
	mu     sync.RWMutex
	values []byte

	// stop willl be closed when Close() is called
	stop     chan struct{}
	stopOnce sync.Once
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values: []byte("{}"),
		stop:   make(chan struct{}),
	}
}

func (i *InmemoryStore) Close() error {
	i.stopOnce.Do(func() {
		close(i.stop)
	})

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if !i.isRunning() {
		return ErrStoreClosed
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	values, err := sjson.SetBytes(i.values, escapeKey(key), value)
	if err != nil {
		return fmt.Errorf("Failed to set %s: %w", key, err)
	}

	i.values = values

	return nil
}

func (i *InmemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	result := gjson.GetBytes(i.values, escapeKey(key))
	if !result.Exists() {
		return nil, nil
	}

	// Copy out, the backing array is replaced by the next Set
	return []byte(result.Raw), nil
}

func (i *InmemoryStore) Delete(ctx context.Context, key string) error {
	if !i.isRunning() {
		return ErrStoreClosed
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	values, err := sjson.DeleteBytes(i.values, escapeKey(key))
	if err != nil {
		return fmt.Errorf("Failed to delete %s: %w", key, err)
	}

	i.values = values

	return nil
}

func (i *InmemoryStore) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n := 0
	gjson.ParseBytes(i.values).ForEach(func(_, _ gjson.Result) bool {
		n++
		return true
	})

	return n
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	return append([]byte(nil), i.values...), nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

// escapeKey escapes the characters that have a meaning in gjson/sjson paths
// so keys are always treated as a single top level member.
func escapeKey(key string) string {
	escaped := make([]byte, 0, len(key))
	for j := 0; j < len(key); j++ {
		switch key[j] {
		case '.', '*', '?', '|', '#', '@', '\\':
			escaped = append(escaped, '\\')
		}

		escaped = append(escaped, key[j])
	}

	return string(escaped)
}

var _ Store = (*InmemoryStore)(nil)
