// Package remote tracks asynchronously loaded server data per cache key.
package remote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value stored under key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// FetchError reports a failed load of one source.
type FetchError struct {
	Source string
	Key    string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("fetch %s [%s]: %v", e.Source, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// State is a point-in-time view of one key of a Collection.
type State[T any] struct {
	Key string
	// Data is only meaningful when Loaded is true.
	Data   T
	Loaded bool
	Err    error
	// Loading is true while neither data nor an error is available.
	Loading bool
	// Stale marks data kept visible while a re-fetch is pending.
	Stale     bool
	UpdatedAt time.Time
}

type entry[T any] struct {
	data      T
	loaded    bool
	err       error
	stale     bool
	updatedAt time.Time
	// gen advances on every invalidation; done is set once a fetch of the
	// current generation has been stored.
	gen  uint64
	done bool
}

// Collection memoizes an asynchronously loaded value per cache key. Concurrent
// loads of the same key share a single fetch.
type Collection[T any] struct {
	name  string
	fetch FetchFunc[T]
	group singleflight.Group

	mu         sync.RWMutex
	current    string
	hasCurrent bool
	entries    map[string]*entry[T]
}

// New returns an empty collection named after the source it loads.
func New[T any](name string, fetch FetchFunc[T]) *Collection[T] {
	return &Collection[T]{
		name:    name,
		fetch:   fetch,
		entries: make(map[string]*entry[T]),
	}
}

// Name returns the source name used in errors and logs.
func (c *Collection[T]) Name() string {
	return c.name
}

// Load makes key the current key and returns its state, fetching only when
// the key has never completed a fetch or has been invalidated since.
func (c *Collection[T]) Load(ctx context.Context, key string) State[T] {
	c.mu.Lock()
	c.current = key
	c.hasCurrent = true
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{}
		c.entries[key] = e
	}
	if e.done {
		st := c.stateLocked(key)
		c.mu.Unlock()
		return st
	}
	gen := e.gen
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.fetch(ctx, key)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	// A result from before an invalidation is dropped, and callers sharing
	// one fetch store it once.
	if e.gen == gen && !e.done {
		c.storeLocked(e, key, v, err)
	}
	return c.stateLocked(key)
}

func (c *Collection[T]) storeLocked(e *entry[T], key string, v any, err error) {
	var zero T
	e.done = true
	e.stale = false
	e.updatedAt = time.Now()
	if err != nil {
		e.data = zero
		e.loaded = false
		e.err = &FetchError{Source: c.name, Key: key, Err: err}
		log.Warn().Str("source", c.name).Str("key", key).Err(err).Msg("fetch failed")
		return
	}
	data, _ := v.(T)
	e.data = data
	e.loaded = true
	e.err = nil
}

func (e *entry[T]) invalidate() {
	e.gen++
	e.done = false
	e.stale = e.loaded || e.err != nil
}

// State returns the state of the current key. Before the first Load it
// reports nothing requested: not loaded, not loading.
func (c *Collection[T]) State() State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.hasCurrent {
		return State[T]{}
	}
	return c.stateLocked(c.current)
}

// Peek returns the state of key without changing the current key.
func (c *Collection[T]) Peek(key string) State[T] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked(key)
}

func (c *Collection[T]) stateLocked(key string) State[T] {
	st := State[T]{Key: key}
	e, ok := c.entries[key]
	if !ok {
		st.Loading = true
		return st
	}
	st.Data = e.data
	st.Loaded = e.loaded
	st.Err = e.err
	st.Stale = e.stale
	st.UpdatedAt = e.updatedAt
	st.Loading = !e.loaded && e.err == nil
	return st
}

// Invalidate marks key stale. Its previous value stays visible until the next
// Load replaces it, and a fetch already in flight is not joined.
func (c *Collection[T]) Invalidate(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.invalidate()
	}
	c.mu.Unlock()
	c.group.Forget(key)
}

// InvalidateAll marks every key stale.
func (c *Collection[T]) InvalidateAll() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key, e := range c.entries {
		e.invalidate()
		keys = append(keys, key)
	}
	c.mu.Unlock()
	for _, key := range keys {
		c.group.Forget(key)
	}
}

// Refresh re-fetches the current key. It is a no-op before the first Load.
func (c *Collection[T]) Refresh(ctx context.Context) State[T] {
	c.mu.RLock()
	key, ok := c.current, c.hasCurrent
	c.mu.RUnlock()
	if !ok {
		return State[T]{}
	}
	c.Invalidate(key)
	return c.Load(ctx, key)
}
