// Package kv provides the durable key-value store the sync engine persists
// its cache and pending-action queue into.
package kv

import "errors"

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Store is a persistent byte-string store keyed by string keys.
//
// Implementations must make MultiSet atomic: either every pair is written
// or none is.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	MultiGet(keys []string) (map[string][]byte, error)
	MultiSet(pairs map[string][]byte) error
	MultiRemove(keys []string) error
	Close() error
}
