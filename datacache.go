package datacache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	c "github.com/qwickapps/datacache/codec"
	"github.com/qwickapps/datacache/internal/keys"
	"github.com/qwickapps/datacache/provider"
	"github.com/qwickapps/datacache/provider/memory"
)

const defaultTTL = 5 * time.Minute

type cached[V any] struct {
	src        Source[V]
	cache      provider.Provider // nil when disabled
	codec      c.Codec[V]
	listCodec  c.Codec[[]V]
	log        Logger
	hooks      Hooks
	defaultTTL time.Duration
	freshMeta  bool
}

func newCached[V any](opts Options[V]) (*cached[V], error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("datacache: source is required")
	}

	p := &cached[V]{
		src:       opts.Source,
		freshMeta: opts.FreshMeta,
	}

	// defaults
	p.log = coalesce[Logger](opts.Logger, NopLogger{})
	p.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	p.defaultTTL = coalesce[time.Duration](opts.DefaultTTL, defaultTTL)
	if opts.Codec != nil {
		p.codec = opts.Codec
	} else {
		p.codec = c.JSON[V]{}
	}
	if opts.ListCodec != nil {
		p.listCodec = opts.ListCodec
	} else {
		p.listCodec = c.JSON[[]V]{}
	}

	switch opts.Cache.mode {
	case modeDisabled:
		// pass-through; p.cache stays nil
	case modeDefault:
		p.cache = memory.New(memory.Config{DefaultTTL: p.defaultTTL})
	case modeConfigured:
		p.cache = memory.New(opts.Cache.cfg)
	case modeCustom:
		if opts.Cache.custom == nil {
			return nil, fmt.Errorf("datacache: custom cache provider is nil")
		}
		p.cache = opts.Cache.custom
	}

	return p, nil
}

func (p *cached[V]) Enabled() bool { return p.cache != nil }

func (p *cached[V]) Close(ctx context.Context) error {
	if p.cache != nil {
		return p.cache.Close(ctx)
	}
	return nil
}

func (p *cached[V]) Get(ctx context.Context, slug string) (Response[V], error) {
	if p.cache == nil {
		resp, err := p.src.Get(ctx, slug)
		if err != nil {
			return Response[V]{}, err
		}
		resp.Cached = false
		return resp, nil
	}

	key := keys.ForGet(slug)
	if v, ok := p.lookup(ctx, key); ok {
		p.hooks.Hit(key)
		if !p.freshMeta {
			return Response[V]{Data: v, Found: true, Cached: true}, nil
		}
		// fresh-meta mode: fetch the envelope, substitute cached data
		resp, err := p.src.Get(ctx, slug)
		if err != nil {
			return Response[V]{}, err
		}
		resp.Data = v
		resp.Found = true
		resp.Cached = true
		return resp, nil
	}

	p.hooks.Miss(key)
	resp, err := p.src.Get(ctx, slug)
	if err != nil {
		return Response[V]{}, err
	}
	if resp.Found {
		p.store(ctx, key, resp.Data, 0)
	}
	resp.Cached = false
	return resp, nil
}

func (p *cached[V]) Select(ctx context.Context, schema string, opts SelectOptions) (ListResponse[V], error) {
	if p.cache == nil {
		resp, err := p.src.Select(ctx, schema, opts)
		if err != nil {
			return ListResponse[V]{}, err
		}
		resp.Cached = false
		return resp, nil
	}

	key, err := p.selectKey(schema, opts)
	if err != nil {
		return ListResponse[V]{}, err
	}
	if vs, ok := p.lookupList(ctx, key); ok {
		p.hooks.Hit(key)
		if !p.freshMeta {
			return ListResponse[V]{Data: vs, Found: true, Cached: true}, nil
		}
		resp, err := p.src.Select(ctx, schema, opts)
		if err != nil {
			return ListResponse[V]{}, err
		}
		resp.Data = vs
		resp.Found = true
		resp.Cached = true
		return resp, nil
	}

	p.hooks.Miss(key)
	resp, err := p.src.Select(ctx, schema, opts)
	if err != nil {
		return ListResponse[V]{}, err
	}
	if resp.Found {
		if raw, eerr := p.listCodec.Encode(resp.Data); eerr != nil {
			p.log.Warn("encode for select store failed", Fields{"key": key, "err": eerr})
		} else {
			p.put(ctx, key, raw, 0)
		}
	}
	resp.Cached = false
	return resp, nil
}

func (p *cached[V]) ClearCache(ctx context.Context, pattern string) error {
	if p.cache == nil {
		p.log.Debug("ClearCache ignored (caching disabled)", Fields{"pattern": pattern})
		return nil
	}
	if pattern == "" {
		return p.cache.Flush(ctx)
	}
	if !keys.HasWildcard(pattern) {
		return p.cache.Del(ctx, pattern)
	}

	sp, ok := p.cache.(provider.StatsProvider)
	if !ok {
		p.log.Info("wildcard ClearCache unsupported by provider", Fields{"pattern": pattern})
		p.hooks.StatsUnsupported(pattern)
		return nil
	}
	re, err := keys.WildcardRegexp(pattern)
	if err != nil {
		return fmt.Errorf("datacache: bad clear pattern %q: %w", pattern, err)
	}
	st, err := sp.Stats(ctx)
	if err != nil {
		return err
	}
	cleared := 0
	for _, k := range st.Keys {
		if !re.MatchString(k) {
			continue
		}
		if err := p.cache.Del(ctx, k); err != nil {
			return err
		}
		cleared++
	}
	p.log.Debug("wildcard ClearCache done", Fields{"pattern": pattern, "cleared": cleared})
	return nil
}

func (p *cached[V]) CacheStats(ctx context.Context) (CacheStats, error) {
	if p.cache == nil {
		return CacheStats{Enabled: false}, nil
	}
	out := CacheStats{Enabled: true, DefaultTTL: p.defaultTTL}
	sp, ok := p.cache.(provider.StatsProvider)
	if !ok {
		// no enumeration support; sizes are unknown, reported as zero
		return out, nil
	}
	st, err := sp.Stats(ctx)
	if err != nil {
		return CacheStats{}, err
	}
	out.TotalEntries = st.Size
	out.ValidEntries = st.Size
	out.MaxSize = st.MaxSize
	out.Keys = st.Keys
	return out, nil
}

func (p *cached[V]) SetEntry(ctx context.Context, key string, value V, ttl time.Duration) error {
	if p.cache == nil {
		p.log.Info("SetEntry ignored (caching disabled)", Fields{"key": key})
		return nil
	}
	raw, err := p.codec.Encode(value)
	if err != nil {
		return err
	}
	p.put(ctx, key, raw, ttl)
	p.hooks.ManualSet(key)
	return nil
}

func (p *cached[V]) SetListEntry(ctx context.Context, key string, values []V, ttl time.Duration) error {
	if p.cache == nil {
		p.log.Info("SetListEntry ignored (caching disabled)", Fields{"key": key})
		return nil
	}
	raw, err := p.listCodec.Encode(values)
	if err != nil {
		return err
	}
	p.put(ctx, key, raw, ttl)
	p.hooks.ManualSet(key)
	return nil
}

// lookup reads and decodes a single-item entry. Provider read errors and
// undecodable payloads degrade to a miss; the latter self-heals by deleting
// the entry.
func (p *cached[V]) lookup(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn("cache read failed; treating as miss", Fields{"key": key, "err": err})
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := p.codec.Decode(raw)
	if err != nil {
		_ = p.cache.Del(ctx, key)
		p.hooks.SelfHeal(key, err)
		return zero, false
	}
	return v, true
}

func (p *cached[V]) lookupList(ctx context.Context, key string) ([]V, bool) {
	raw, ok, err := p.cache.Get(ctx, key)
	if err != nil {
		p.log.Warn("cache read failed; treating as miss", Fields{"key": key, "err": err})
		return nil, false
	}
	if !ok {
		return nil, false
	}
	vs, err := p.listCodec.Decode(raw)
	if err != nil {
		_ = p.cache.Del(ctx, key)
		p.hooks.SelfHeal(key, err)
		return nil, false
	}
	return vs, true
}

// store encodes and writes a single-item payload. Failures never fail the
// caller's response: the data is already in hand.
func (p *cached[V]) store(ctx context.Context, key string, value V, ttl time.Duration) {
	raw, err := p.codec.Encode(value)
	if err != nil {
		p.log.Warn("encode for store failed", Fields{"key": key, "err": err})
		return
	}
	p.put(ctx, key, raw, ttl)
}

func (p *cached[V]) put(ctx context.Context, key string, raw []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = p.defaultTTL
	}
	ok, err := p.cache.Set(ctx, key, raw, ttl)
	if err != nil {
		p.log.Warn("cache write failed", Fields{"key": key, "err": err})
		return
	}
	if !ok {
		p.hooks.SetRejected(key)
	}
}

func (p *cached[V]) selectKey(schema string, opts SelectOptions) (string, error) {
	// encoding/json sorts map keys, so equal option values always produce
	// the same key
	enc, err := json.Marshal(opts)
	if err != nil {
		return "", fmt.Errorf("datacache: encode select options: %w", err)
	}
	return keys.ForSelect(schema, enc), nil
}
