// Package diarize runs speaker diarization over an episode's analysis
// window, memoizing results in a durable cache.
//
// Diarizing twenty minutes of audio costs minutes of wall time and real
// money, so results are cached permanently: a DiarizationResult for a
// given (episode, window) pair never changes. The cache key includes the
// window length, so re-analyzing with a longer window is a miss and a
// fresh service call.
package diarize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/podtalk/podtalk/pkg/kv"
	"github.com/podtalk/podtalk/pkg/types"
)

const cachePrefix = "diarization"

// Cache is the durable memo of diarization results.
type Cache struct {
	store  kv.Store
	logger *slog.Logger
}

// NewCache wraps a kv store. A nil logger uses slog.Default().
func NewCache(store kv.Store, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, logger: logger}
}

// cacheKey builds the store key for one (episode, window) pair.
func cacheKey(episodeKey string, window time.Duration) kv.Key {
	return kv.Key{cachePrefix, episodeKey, strconv.FormatInt(int64(window/time.Second), 10) + "s"}
}

// Get returns the cached result for the episode and window, or false on
// a miss. A corrupt entry counts as a miss; the bad value is deleted so
// the next Put can replace it.
func (c *Cache) Get(ctx context.Context, episodeKey string, window time.Duration) (types.DiarizationResult, bool) {
	key := cacheKey(episodeKey, window)
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Warn("diarization cache read failed", "key", key.String(), "error", err)
		}
		return types.DiarizationResult{}, false
	}

	var result types.DiarizationResult
	if err := msgpack.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("discarding corrupt diarization cache entry", "key", key.String(), "error", err)
		_ = c.store.Delete(ctx, key)
		return types.DiarizationResult{}, false
	}
	return result, true
}

// Put stores a result under its episode and window.
func (c *Cache) Put(ctx context.Context, result types.DiarizationResult) error {
	raw, err := msgpack.Marshal(result)
	if err != nil {
		return fmt.Errorf("diarize: encode result: %w", err)
	}
	key := cacheKey(result.EpisodeKey, result.Window)
	if err := c.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("diarize: store result: %w", err)
	}
	return nil
}

// Entries lists the cached (episode, window) pairs, used by the status
// command.
func (c *Cache) Entries(ctx context.Context) ([]types.DiarizationResult, error) {
	var out []types.DiarizationResult
	for entry, err := range c.store.List(ctx, kv.Key{cachePrefix}) {
		if err != nil {
			return nil, fmt.Errorf("diarize: list cache: %w", err)
		}
		var result types.DiarizationResult
		if err := msgpack.Unmarshal(entry.Value, &result); err != nil {
			c.logger.Warn("skipping corrupt diarization cache entry", "key", entry.Key.String(), "error", err)
			continue
		}
		out = append(out, result)
	}
	return out, nil
}
