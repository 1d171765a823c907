// Package objectstore stores audio blobs (uploaded voice samples and
// synthesized replies) by key.
package objectstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

// Store reads and writes audio blobs by key within one bucket.
type Store interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Close() error
}
