// Package memory implements the default in-process provider: a bounded
// key-value table with LRU eviction and lazy TTL expiration.
//
// Recency is tracked by a doubly-linked list over the table: the front is
// the eviction candidate, the back is most recently touched. A live Get
// moves the entry to the back without refreshing its stored timestamp; only
// an overwrite resets freshness. Expiration is evaluated at access time
// rather than by a background timer, so Stats and Keys may report entries
// that are already dead; Cleanup sweeps them on demand.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	pr "github.com/qwickapps/datacache/provider"
)

const (
	// DefaultMaxEntries bounds the table when Config.MaxEntries is zero.
	DefaultMaxEntries = 1000
	// DefaultTTL applies at read time to entries stored without their own
	// TTL when Config.DefaultTTL is zero.
	DefaultTTL = 5 * time.Minute
)

type Config struct {
	MaxEntries int           // 0 => DefaultMaxEntries
	DefaultTTL time.Duration // 0 => DefaultTTL; < 0 => entries without TTL never expire
	// OnEvict is called (outside the lock) for each entry removed by LRU
	// eviction. Expiry and explicit deletes do not trigger it.
	OnEvict func(key string)
}

type entry struct {
	key      string
	value    []byte
	storedAt time.Time
	ttl      time.Duration // 0 => resolve against the default at read time
}

// Cache is the in-memory provider. Safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	max   int
	ttl   time.Duration
	evict func(key string)

	order *list.List // *entry; front = oldest by touch
	table map[string]*list.Element

	now func() time.Time // swapped in tests
}

var (
	_ pr.Provider      = (*Cache)(nil)
	_ pr.StatsProvider = (*Cache)(nil)
	_ pr.Sweeper       = (*Cache)(nil)
)

func New(cfg Config) *Cache {
	max := cfg.MaxEntries
	if max <= 0 {
		max = DefaultMaxEntries
	}
	ttl := cfg.DefaultTTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		max:   max,
		ttl:   ttl,
		evict: cfg.OnEvict,
		order: list.New(),
		table: make(map[string]*list.Element),
		now:   time.Now,
	}
}

// Get returns the live value for key and promotes it to most recently used.
// An expired entry is deleted and reported as a miss.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.table[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if c.expired(e, c.now()) {
		c.remove(el)
		return nil, false, nil
	}
	c.order.MoveToBack(el)
	return e.value, true, nil
}

// Set stores value under key. An existing entry is removed first so the new
// one lands at the most-recently-used position; if the table is full the
// single oldest entry is evicted before insertion. ttl <= 0 defers to the
// configured default at read time.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	var evicted string
	var didEvict bool

	c.mu.Lock()
	if el, ok := c.table[key]; ok {
		c.remove(el)
	}
	if c.order.Len() >= c.max {
		oldest := c.order.Front()
		evicted = oldest.Value.(*entry).key
		didEvict = true
		c.remove(oldest)
	}
	el := c.order.PushBack(&entry{
		key:      key,
		value:    value,
		storedAt: c.now(),
		ttl:      ttl,
	})
	c.table[key] = el
	c.mu.Unlock()

	if didEvict && c.evict != nil {
		c.evict(evicted)
	}
	return true, nil
}

func (c *Cache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.table[key]; ok {
		c.remove(el)
	}
	return nil
}

func (c *Cache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.table = make(map[string]*list.Element)
	return nil
}

func (c *Cache) Close(ctx context.Context) error { return c.Flush(ctx) }

// Stats reports current size, capacity, and keys in oldest-to-newest touch
// order. Entries past their TTL but not yet reclaimed are included.
func (c *Cache) Stats(context.Context) (pr.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ks := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		ks = append(ks, el.Value.(*entry).key)
	}
	return pr.Stats{Size: len(ks), MaxSize: c.max, Keys: ks}, nil
}

// Cleanup deletes every expired entry and returns how many were removed.
func (c *Cache) Cleanup(context.Context) (int, error) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if c.expired(el.Value.(*entry), now) {
			c.remove(el)
			removed++
		}
		el = next
	}
	return removed, nil
}

// expired reports whether e is dead at t. An entry is live while
// t - storedAt <= ttl, with the cache default standing in for entries
// stored without their own TTL.
func (c *Cache) expired(e *entry, t time.Time) bool {
	ttl := e.ttl
	if ttl == 0 {
		ttl = c.ttl
	}
	if ttl <= 0 {
		return false
	}
	return t.Sub(e.storedAt) > ttl
}

// remove unlinks el; caller holds the lock.
func (c *Cache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.table, el.Value.(*entry).key)
}
