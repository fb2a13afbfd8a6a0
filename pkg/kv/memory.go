package kv

import (
	"bytes"
	"context"
	"iter"
	"sort"
	"sync"
)

// Memory is an in-memory Store, safe for concurrent use. Intended for
// tests and throwaway sessions.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	v, ok := m.data[key.String()]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return bytes.Clone(v), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	m.data[key.String()] = bytes.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	delete(m.data, key.String())
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := prefixBytes(prefix)

	m.mu.RLock()
	var keys []string
	for k := range m.data {
		if len(p) == 0 || bytes.HasPrefix([]byte(k), p) {
			keys = append(keys, k)
		}
	}
	entries := make([]Entry, 0, len(keys))
	sort.Strings(keys)
	for _, k := range keys {
		entries = append(entries, Entry{
			Key:   decode([]byte(k)),
			Value: bytes.Clone(m.data[k]),
		})
	}
	m.mu.RUnlock()

	return func(yield func(Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
