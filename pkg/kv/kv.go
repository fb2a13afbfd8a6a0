// Package kv provides a small key-value store abstraction with
// hierarchical path-based keys, used for durable caches.
//
// Keys are string slices (e.g., ["diarization", "myshow/ep42"]) joined
// with ':' for storage. The package ships a BadgerDB-backed store for
// production and an in-memory store for tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("kv: not found")

// Separator joins key segments in the encoded representation. Segments
// must not contain it.
const Separator = ":"

// Key is a hierarchical path represented as a slice of string segments.
type Key []string

// String returns the encoded form of the key.
func (k Key) String() string {
	return strings.Join(k, Separator)
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is a durable key-value store with path-based keys.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if absent.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a key-value pair, overwriting any existing value.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// List iterates entries whose key has the given prefix, in
	// lexicographic order of the encoded key.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// Close releases resources held by the store.
	Close() error
}

func encode(k Key) []byte {
	return []byte(k.String())
}

func decode(b []byte) Key {
	return Key(strings.Split(string(b), Separator))
}

// prefixBytes returns the encoded prefix with a trailing separator, so
// the prefix "a:b" does not match the key "a:bc". An empty prefix
// matches everything.
func prefixBytes(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return []byte(prefix.String() + Separator)
}
