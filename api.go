package datacache

import (
	"context"
	"time"

	c "github.com/qwickapps/datacache/codec"
	"github.com/qwickapps/datacache/provider"
	"github.com/qwickapps/datacache/provider/memory"
)

// Meta carries source-defined envelope metadata. The cache never inspects it.
type Meta map[string]any

// Response is the envelope for a single-item lookup. Found reports whether
// Data is populated; Cached reports whether Data was served from cache.
type Response[V any] struct {
	Data   V
	Found  bool
	Cached bool
	Meta   Meta
}

// ListResponse is the envelope for a multi-item query.
type ListResponse[V any] struct {
	Data   []V
	Found  bool
	Cached bool
	Meta   Meta
}

// SelectOptions narrows a Select query. Distinct option combinations occupy
// distinct cache slots.
type SelectOptions struct {
	Offset  int            `json:"offset,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Sort    string         `json:"sort,omitempty"`
	OrderBy string         `json:"orderBy,omitempty"`
	Filters map[string]any `json:"filters,omitempty"`
}

// Source is the wrapped data-fetching collaborator. Slugs and schema names
// are opaque to the cache layer. Errors returned by a Source pass through
// the wrapper unchanged.
type Source[V any] interface {
	Get(ctx context.Context, slug string) (Response[V], error)
	Select(ctx context.Context, schema string, opts SelectOptions) (ListResponse[V], error)
}

// CacheStats is the wrapper-level view of the underlying cache. Expiration
// is the provider's lazy concern, so TotalEntries and ValidEntries report
// the same number. Keys is populated only when the provider supports
// enumeration.
type CacheStats struct {
	TotalEntries int
	ValidEntries int
	MaxSize      int
	DefaultTTL   time.Duration
	Enabled      bool
	Keys         []string
}

// DataProvider is a caching substitute for a Source. Get and Select keep
// the Source signatures; the remaining methods administer the cache.
type DataProvider[V any] interface {
	Enabled() bool
	Get(ctx context.Context, slug string) (Response[V], error)
	Select(ctx context.Context, schema string, opts SelectOptions) (ListResponse[V], error)

	// ClearCache invalidates entries. Empty pattern clears everything,
	// a plain key clears that entry, and a pattern containing '*' clears
	// every currently known key it matches. Wildcard clearing requires a
	// provider with stats support; without it the call is a logged no-op.
	ClearCache(ctx context.Context, pattern string) error

	// CacheStats reports the current state of the underlying cache.
	CacheStats(ctx context.Context) (CacheStats, error)

	// SetEntry seeds a single-item value under key, bypassing any fetch.
	// ttl 0 falls back to the configured default.
	SetEntry(ctx context.Context, key string, value V, ttl time.Duration) error

	// SetListEntry seeds a query result under key, bypassing any fetch.
	SetListEntry(ctx context.Context, key string, values []V, ttl time.Duration) error

	Close(ctx context.Context) error
}

type cacheMode uint8

const (
	modeDefault cacheMode = iota // zero value: cache on by default
	modeDisabled
	modeConfigured
	modeCustom
)

// CacheChoice selects the cache wiring at construction time. The zero value
// means DefaultCache. Use the constructors below; the discriminant is fixed
// by the caller, never inferred from the shape of a config object.
type CacheChoice struct {
	mode   cacheMode
	cfg    memory.Config
	custom provider.Provider
}

// NoCache disables caching. Every call passes straight through the Source.
func NoCache() CacheChoice { return CacheChoice{mode: modeDisabled} }

// DefaultCache builds a memory cache with default bounds.
func DefaultCache() CacheChoice { return CacheChoice{mode: modeDefault} }

// ConfiguredCache builds a memory cache from cfg.
func ConfiguredCache(cfg memory.Config) CacheChoice {
	return CacheChoice{mode: modeConfigured, cfg: cfg}
}

// CustomCache uses a caller-supplied provider instance. The wrapper takes
// ownership: Close closes it.
func CustomCache(p provider.Provider) CacheChoice {
	return CacheChoice{mode: modeCustom, custom: p}
}

// Options tune the wrapper. Only Source is required; others have sensible
// defaults. The resolved configuration is immutable for the lifetime of the
// instance.
type Options[V any] struct {
	// Required
	Source Source[V]

	Cache      CacheChoice   // zero value => DefaultCache
	Codec      c.Codec[V]    // nil => JSON
	ListCodec  c.Codec[[]V]  // nil => JSON
	Logger     Logger        // nil => NopLogger
	Hooks      Hooks         // nil => NopHooks
	DefaultTTL time.Duration // 0 => 5m; applied when storing on miss

	// FreshMeta reproduces the historical hit behavior: the Source is
	// fetched on every call and on a hit only Data is substituted from
	// cache (envelope metadata stays fresh, Cached is still true). When
	// false (the default) a hit is served entirely from cache with a
	// synthesized envelope and the Source is not called.
	FreshMeta bool
}

// New builds a DataProvider from opts.
func New[V any](opts Options[V]) (DataProvider[V], error) {
	return newCached[V](opts)
}
