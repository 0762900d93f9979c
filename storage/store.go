package storage

import (
	"context"
	"errors"
)

var ErrStoreClosed = errors.New("Store has been closed")

// Store holds a JSON document keyed by countdown ID. It only ever records
// what is running, countdowns never read from it.
type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// Len returns the number of top level keys.
	Len() int

	Backup() ([]byte, error)

	Close() error
}
