package storage

import "errors"

// ErrNotFound is returned by LoadMetadata when nothing was saved under the key.
var ErrNotFound = errors.New("metadata not found")

// Store persists opaque snapshot blobs by key. Every save replaces the
// previous value for that key in full.
type Store interface {
	SaveMetadata(key string, data []byte) error
	LoadMetadata(key string) ([]byte, error)
	Close() error
}
