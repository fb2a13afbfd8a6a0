package kv

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"
)

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

// BadgerOptions configures the BadgerDB store.
type BadgerOptions struct {
	// Dir is the directory for BadgerDB data files. Required unless
	// InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence. Useful for
	// exercising the real engine in tests.
	InMemory bool

	// Logger receives badger's warning and error output. If nil,
	// slog.Default() is used. Info and debug output is always dropped.
	Logger *slog.Logger
}

// NewBadger opens a BadgerDB-backed Store.
func NewBadger(opts BadgerOptions) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("kv: BadgerOptions.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithLogger(slogAdapter{logger.With("component", "badger")})
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: open badger: %w", err)
	}
	return &Badger{db: db}, nil
}

func (b *Badger) Get(_ context.Context, key Key) ([]byte, error) {
	var val []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encode(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return val, err
}

func (b *Badger) Set(_ context.Context, key Key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(encode(key), value)
	})
}

func (b *Badger) Delete(_ context.Context, key Key) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(encode(key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

func (b *Badger) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := prefixBytes(prefix)
	return func(yield func(Entry, error) bool) {
		err := b.db.View(func(txn *badger.Txn) error {
			iterOpts := badger.DefaultIteratorOptions
			iterOpts.Prefix = p
			it := txn.NewIterator(iterOpts)
			defer it.Close()

			for it.Seek(p); it.ValidForPrefix(p); it.Next() {
				item := it.Item()
				val, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(Entry{}, err) {
						return nil
					}
					continue
				}
				entry := Entry{
					Key:   decode(item.KeyCopy(nil)),
					Value: val,
				}
				if !yield(entry, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Entry{}, err)
		}
	}
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// slogAdapter bridges badger's logger interface onto slog, dropping the
// chatty info and debug levels.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...any)   { a.l.Error(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Warningf(f string, v ...any) { a.l.Warn(fmt.Sprintf(f, v...)) }
func (a slogAdapter) Infof(string, ...any)        {}
func (a slogAdapter) Debugf(string, ...any)       {}
