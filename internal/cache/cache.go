// Package cache is an in-memory, label-indexed store for server-fetched
// entities. Entries are invalidated in bulk by label and refetched on the next
// read.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Label is a category tag used for bulk invalidation.
type Label string

const (
	LabelAuth           Label = "Auth"
	LabelMe             Label = "Me"
	LabelPosts          Label = "Posts"
	LabelFollowers      Label = "Followers"
	LabelFollowing      Label = "Following"
	LabelUserProfile    Label = "UserProfile"
	LabelFriendRequests Label = "FriendRequests"
	LabelSearch         Label = "Search"
)

// Key identifies one cached request, e.g. "profile:alice".
type Key string

// KeyFor joins the kind and parts with ':'.
func KeyFor(kind string, parts ...any) Key {
	var b strings.Builder
	b.WriteString(kind)
	for _, p := range parts {
		b.WriteByte(':')
		fmt.Fprint(&b, p)
	}
	return Key(b.String())
}

type entry struct {
	value    any
	labels   []Label
	stale    bool
	storedAt time.Time
	ttl      time.Duration
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	Fetches       int64
	Entries       int
}

type Options struct {
	DefaultTTL time.Duration
	Now        func() time.Time
}

type Option func(*Options)

func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *Options) { o.DefaultTTL = ttl }
}

func WithClock(now func() time.Time) Option {
	return func(o *Options) { o.Now = now }
}

// PutOption adjusts a single Put.
type PutOption func(*entry)

// WithTTL overrides the default TTL for one entry.
func WithTTL(ttl time.Duration) PutOption {
	return func(e *entry) { e.ttl = ttl }
}

// Cache is safe for concurrent use. At most one entry exists per key.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*entry
	byLabel map[Label]map[Key]struct{}
	epochs  map[Label]uint64
	flight  singleflight.Group
	opts    Options

	hits          int64
	misses        int64
	invalidations int64
	fetches       int64
}

func New(opts ...Option) *Cache {
	o := Options{Now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return &Cache{
		entries: make(map[Key]*entry),
		byLabel: make(map[Label]map[Key]struct{}),
		epochs:  make(map[Label]uint64),
		opts:    o,
	}
}

// Get returns the payload for key when present, fresh and unexpired.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	if !ok || e.stale || c.expired(e) {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	value := e.value
	c.mu.RUnlock()

	atomic.AddInt64(&c.hits, 1)
	return value, true
}

// Put stores value under key, replacing any previous entry and its labels.
func (c *Cache) Put(key Key, value any, labels []Label, opts ...PutOption) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(key, value, labels, false, opts...)
}

func (c *Cache) putLocked(key Key, value any, labels []Label, stale bool, opts ...PutOption) {
	c.removeLocked(key)

	e := &entry{
		value:    value,
		labels:   append([]Label(nil), labels...),
		stale:    stale,
		storedAt: c.opts.Now(),
		ttl:      c.opts.DefaultTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	c.entries[key] = e
	for _, l := range e.labels {
		keys, ok := c.byLabel[l]
		if !ok {
			keys = make(map[Key]struct{})
			c.byLabel[l] = keys
		}
		keys[key] = struct{}{}
	}
}

// Invalidate marks every entry carrying any of labels stale and returns the
// number of entries that went from fresh to stale. Calling it again with the
// same labels has no further observable effect.
func (c *Cache) Invalidate(labels ...Label) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	marked := 0
	for _, l := range labels {
		c.epochs[l]++
		for key := range c.byLabel[l] {
			e := c.entries[key]
			if e == nil || e.stale {
				continue
			}
			e.stale = true
			marked++
		}
	}
	atomic.AddInt64(&c.invalidations, int64(marked))
	return marked
}

// IsStale reports whether key is cached but needs a refetch.
func (c *Cache) IsStale(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return ok && (e.stale || c.expired(e))
}

// Labels returns the labels stored with key.
func (c *Cache) Labels(key Key) []Label {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if e, ok := c.entries[key]; ok {
		return append([]Label(nil), e.labels...)
	}
	return nil
}

func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(key)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*entry)
	c.byLabel = make(map[Label]map[Key]struct{})
	for l := range c.epochs {
		c.epochs[l]++
	}
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return Stats{
		Hits:          atomic.LoadInt64(&c.hits),
		Misses:        atomic.LoadInt64(&c.misses),
		Invalidations: atomic.LoadInt64(&c.invalidations),
		Fetches:       atomic.LoadInt64(&c.fetches),
		Entries:       n,
	}
}

func (c *Cache) removeLocked(key Key) {
	old, ok := c.entries[key]
	if !ok {
		return
	}
	for _, l := range old.labels {
		if keys, ok := c.byLabel[l]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byLabel, l)
			}
		}
	}
	delete(c.entries, key)
}

func (c *Cache) expired(e *entry) bool {
	return e.ttl > 0 && c.opts.Now().Sub(e.storedAt) >= e.ttl
}

func (c *Cache) snapshotEpochs(labels []Label) []uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]uint64, len(labels))
	for i, l := range labels {
		out[i] = c.epochs[l]
	}
	return out
}

// store writes a fetched value. If any label was invalidated (or the cache was
// reset) after the fetch began, the value is stored already stale.
func (c *Cache) store(key Key, value any, labels []Label, started []uint64, opts ...PutOption) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stale := false
	for i, l := range labels {
		if c.epochs[l] != started[i] {
			stale = true
			break
		}
	}
	c.putLocked(key, value, labels, stale, opts...)
}

// Fetch returns the cached value for key or calls fn once, even when several
// goroutines ask for the same key concurrently. A failed fn stores nothing.
func Fetch[T any](ctx context.Context, c *Cache, key Key, labels []Label, fn func(ctx context.Context) (T, error), opts ...PutOption) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	result, err, _ := c.flight.Do(string(key), func() (interface{}, error) {
		started := c.snapshotEpochs(labels)
		atomic.AddInt64(&c.fetches, 1)
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		c.store(key, value, labels, started, opts...)
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
