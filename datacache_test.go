package datacache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qwickapps/datacache/internal/keys"
	pr "github.com/qwickapps/datacache/provider"
	"github.com/qwickapps/datacache/provider/memory"
)

type article struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// fakeSource records call counts and serves from a mutable table, so tests
// can observe whether the wrapper consulted it and whether stale data is
// being served from cache.
type fakeSource struct {
	gets    int
	selects int
	items   map[string]article
	err     error
}

var _ Source[article] = (*fakeSource)(nil)

func (f *fakeSource) Get(_ context.Context, slug string) (Response[article], error) {
	f.gets++
	if f.err != nil {
		return Response[article]{}, f.err
	}
	v, ok := f.items[slug]
	return Response[article]{
		Data:  v,
		Found: ok,
		Meta:  Meta{"fetch": f.gets},
	}, nil
}

func (f *fakeSource) Select(_ context.Context, schema string, opts SelectOptions) (ListResponse[article], error) {
	f.selects++
	if f.err != nil {
		return ListResponse[article]{}, f.err
	}
	out := make([]article, 0, len(f.items))
	for _, v := range f.items {
		out = append(out, v)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return ListResponse[article]{
		Data:  out,
		Found: true,
		Meta:  Meta{"schema": schema, "fetch": f.selects},
	}, nil
}

type recHooks struct {
	NopHooks
	hits, misses, rejected, unsupported, manual int
}

func (r *recHooks) Hit(string)              { r.hits++ }
func (r *recHooks) Miss(string)             { r.misses++ }
func (r *recHooks) SetRejected(string)      { r.rejected++ }
func (r *recHooks) StatsUnsupported(string) { r.unsupported++ }
func (r *recHooks) ManualSet(string)        { r.manual++ }

func newFakeSource() *fakeSource {
	return &fakeSource{items: map[string]article{
		"company": {Slug: "company", Name: "Q"},
		"about":   {Slug: "about", Name: "About"},
	}}
}

func newTestProvider(t *testing.T, src Source[article], mod func(*Options[article])) DataProvider[article] {
	t.Helper()
	opts := Options[article]{Source: src}
	if mod != nil {
		mod(&opts)
	}
	dp, err := New[article](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return dp
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New[article](Options[article]{}); err == nil {
		t.Fatalf("New without source should fail")
	}
	if _, err := New[article](Options[article]{
		Source: newFakeSource(),
		Cache:  CustomCache(nil),
	}); err == nil {
		t.Fatalf("New with nil custom provider should fail")
	}
}

func TestDisabledModePassesThrough(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, func(o *Options[article]) { o.Cache = NoCache() })
	defer dp.Close(ctx)

	if dp.Enabled() {
		t.Fatalf("NoCache provider should report disabled")
	}
	for i := 0; i < 2; i++ {
		resp, err := dp.Get(ctx, "company")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if resp.Cached {
			t.Fatalf("disabled mode must never report cached")
		}
		if resp.Data.Name != "Q" {
			t.Fatalf("unexpected data %+v", resp.Data)
		}
	}
	if src.gets != 2 {
		t.Fatalf("both calls should hit the source, gets=%d", src.gets)
	}

	// administration is a no-op when disabled
	if err := dp.ClearCache(ctx, "get:*"); err != nil {
		t.Fatalf("ClearCache disabled: %v", err)
	}
	if err := dp.SetEntry(ctx, "get:company", article{}, 0); err != nil {
		t.Fatalf("SetEntry disabled: %v", err)
	}
	st, err := dp.CacheStats(ctx)
	if err != nil || st.Enabled || st.TotalEntries != 0 {
		t.Fatalf("disabled stats = %+v err=%v", st, err)
	}
}

func TestGetMissThenHit(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	hooks := &recHooks{}
	dp := newTestProvider(t, src, func(o *Options[article]) { o.Hooks = hooks })
	defer dp.Close(ctx)

	first, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if first.Cached || first.Data.Name != "Q" {
		t.Fatalf("first Get: %+v", first)
	}

	second, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !second.Cached || second.Data != first.Data {
		t.Fatalf("second Get should hit with identical data: %+v", second)
	}
	if src.gets != 1 {
		t.Fatalf("pure-cache hit must not fetch, gets=%d", src.gets)
	}
	if hooks.misses != 1 || hooks.hits != 1 {
		t.Fatalf("hooks: misses=%d hits=%d", hooks.misses, hooks.hits)
	}
}

func TestGetNotFoundIsNotCached(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	for i := 0; i < 2; i++ {
		resp, err := dp.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if resp.Found || resp.Cached {
			t.Fatalf("missing slug: %+v", resp)
		}
	}
	if src.gets != 2 {
		t.Fatalf("absent payloads must not be cached, gets=%d", src.gets)
	}
}

func TestFreshMetaModeFetchesAndSubstitutes(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, func(o *Options[article]) { o.FreshMeta = true })
	defer dp.Close(ctx)

	first, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// mutate the source; a hit must still serve the cached payload but
	// carry the fresh envelope
	src.items["company"] = article{Slug: "company", Name: "changed"}

	second, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second Get should be a hit")
	}
	if second.Data != first.Data {
		t.Fatalf("hit must serve cached data, got %+v", second.Data)
	}
	if second.Meta["fetch"] != 2 {
		t.Fatalf("hit should carry the fresh envelope, meta=%v", second.Meta)
	}
	if src.gets != 2 {
		t.Fatalf("fresh-meta mode fetches on every call, gets=%d", src.gets)
	}
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, func(o *Options[article]) {
		o.DefaultTTL = 15 * time.Millisecond
	})
	defer dp.Close(ctx)

	if _, err := dp.Get(ctx, "company"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	resp, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Cached {
		t.Fatalf("entry should have expired")
	}
	if src.gets != 2 {
		t.Fatalf("expired entry must refetch, gets=%d", src.gets)
	}
}

func TestSelectKeysDistinctPerOptions(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	if _, err := dp.Select(ctx, "article", SelectOptions{Limit: 1}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if _, err := dp.Select(ctx, "article", SelectOptions{Limit: 2}); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if src.selects != 2 {
		t.Fatalf("distinct options must occupy distinct slots, selects=%d", src.selects)
	}

	r1, err := dp.Select(ctx, "article", SelectOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	r2, err := dp.Select(ctx, "article", SelectOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !r1.Cached || !r2.Cached {
		t.Fatalf("repeat selects should hit: %v %v", r1.Cached, r2.Cached)
	}
	if len(r1.Data) != 1 || len(r2.Data) != 2 {
		t.Fatalf("cached lists wrong sizes: %d %d", len(r1.Data), len(r2.Data))
	}
	if src.selects != 2 {
		t.Fatalf("hits must not fetch, selects=%d", src.selects)
	}
}

func TestClearCacheExactKey(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	if _, err := dp.Get(ctx, "company"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := dp.Select(ctx, "article", SelectOptions{}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	if err := dp.ClearCache(ctx, keys.ForGet("company")); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}

	resp, _ := dp.Get(ctx, "company")
	if resp.Cached {
		t.Fatalf("cleared entry should miss")
	}
	sel, _ := dp.Select(ctx, "article", SelectOptions{})
	if !sel.Cached {
		t.Fatalf("unrelated select entry should remain a hit")
	}
}

func TestClearCacheWildcard(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	_, _ = dp.Get(ctx, "company")
	_, _ = dp.Get(ctx, "about")
	_, _ = dp.Select(ctx, "article", SelectOptions{})

	if err := dp.ClearCache(ctx, "get:*"); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}

	if r, _ := dp.Get(ctx, "company"); r.Cached {
		t.Fatalf("get:company should be cleared")
	}
	if r, _ := dp.Get(ctx, "about"); r.Cached {
		t.Fatalf("get:about should be cleared")
	}
	if r, _ := dp.Select(ctx, "article", SelectOptions{}); !r.Cached {
		t.Fatalf("select entries should survive a get:* clear")
	}
}

func TestClearCacheEmptyFlushesAll(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	_, _ = dp.Get(ctx, "company")
	_, _ = dp.Select(ctx, "article", SelectOptions{})

	if err := dp.ClearCache(ctx, ""); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	st, _ := dp.CacheStats(ctx)
	if st.TotalEntries != 0 {
		t.Fatalf("flush should empty the cache, stats=%+v", st)
	}
}

// blindProvider stores bytes but cannot enumerate keys; wildcard clears
// must degrade to a logged no-op with it.
type blindProvider struct {
	m map[string][]byte
}

var _ pr.Provider = (*blindProvider)(nil)

func newBlindProvider() *blindProvider { return &blindProvider{m: make(map[string][]byte)} }

func (p *blindProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := p.m[key]
	return b, ok, nil
}
func (p *blindProvider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	p.m[key] = value
	return true, nil
}
func (p *blindProvider) Del(_ context.Context, key string) error { delete(p.m, key); return nil }
func (p *blindProvider) Flush(context.Context) error {
	p.m = make(map[string][]byte)
	return nil
}
func (p *blindProvider) Close(context.Context) error { return nil }

func TestWildcardClearDegradesWithoutStats(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	hooks := &recHooks{}
	dp := newTestProvider(t, src, func(o *Options[article]) {
		o.Cache = CustomCache(newBlindProvider())
		o.Hooks = hooks
	})
	defer dp.Close(ctx)

	_, _ = dp.Get(ctx, "company")

	if err := dp.ClearCache(ctx, "get:*"); err != nil {
		t.Fatalf("degraded wildcard clear must not error: %v", err)
	}
	if hooks.unsupported != 1 {
		t.Fatalf("StatsUnsupported hook expected once, got %d", hooks.unsupported)
	}
	// entry untouched
	if r, _ := dp.Get(ctx, "company"); !r.Cached {
		t.Fatalf("degraded clear must leave entries in place")
	}
	// sizes unknown without enumeration
	st, err := dp.CacheStats(ctx)
	if err != nil || !st.Enabled || st.TotalEntries != 0 || st.Keys != nil {
		t.Fatalf("stats without enumeration = %+v err=%v", st, err)
	}
}

// rejectingProvider refuses every write, like an admission-based store
// under pressure.
type rejectingProvider struct{ blindProvider }

func (p *rejectingProvider) Set(context.Context, string, []byte, time.Duration) (bool, error) {
	return false, nil
}

func TestSetRejectionIsAMiss(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	hooks := &recHooks{}
	dp := newTestProvider(t, src, func(o *Options[article]) {
		o.Cache = CustomCache(&rejectingProvider{blindProvider{m: make(map[string][]byte)}})
		o.Hooks = hooks
	})
	defer dp.Close(ctx)

	for i := 0; i < 2; i++ {
		resp, err := dp.Get(ctx, "company")
		if err != nil || resp.Cached {
			t.Fatalf("rejected stores should behave as misses: %+v err=%v", resp, err)
		}
	}
	if src.gets != 2 || hooks.rejected != 2 {
		t.Fatalf("gets=%d rejected=%d", src.gets, hooks.rejected)
	}
}

func TestManualSetEntry(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	hooks := &recHooks{}
	dp := newTestProvider(t, src, func(o *Options[article]) { o.Hooks = hooks })
	defer dp.Close(ctx)

	seed := article{Slug: "manual", Name: "Seeded"}
	if err := dp.SetEntry(ctx, keys.ForGet("manual"), seed, 0); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}

	resp, err := dp.Get(ctx, "manual")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !resp.Cached || resp.Data != seed {
		t.Fatalf("seeded entry should hit without fetching: %+v", resp)
	}
	if src.gets != 0 {
		t.Fatalf("seeded hit must not touch the source, gets=%d", src.gets)
	}
	if hooks.manual != 1 {
		t.Fatalf("ManualSet hook expected once, got %d", hooks.manual)
	}
}

func TestManualSetListEntry(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	want := []article{{Slug: "a", Name: "A"}, {Slug: "b", Name: "B"}}
	opts := SelectOptions{Limit: 2}
	key, err := dp.(*cached[article]).selectKey("article", opts)
	if err != nil {
		t.Fatalf("selectKey: %v", err)
	}
	if err := dp.SetListEntry(ctx, key, want, 0); err != nil {
		t.Fatalf("SetListEntry: %v", err)
	}

	resp, err := dp.Select(ctx, "article", opts)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !resp.Cached || len(resp.Data) != 2 || resp.Data[0] != want[0] {
		t.Fatalf("seeded select should hit: %+v", resp)
	}
	if src.selects != 0 {
		t.Fatalf("seeded hit must not touch the source, selects=%d", src.selects)
	}
}

func TestSourceErrorsPropagateUnchanged(t *testing.T) {
	ctx := context.Background()
	sentinel := errors.New("backend down")
	src := &fakeSource{err: sentinel}
	dp := newTestProvider(t, src, nil)
	defer dp.Close(ctx)

	if _, err := dp.Get(ctx, "company"); !errors.Is(err, sentinel) {
		t.Fatalf("Get error = %v, want sentinel", err)
	}
	if _, err := dp.Select(ctx, "article", SelectOptions{}); !errors.Is(err, sentinel) {
		t.Fatalf("Select error = %v, want sentinel", err)
	}
	st, _ := dp.CacheStats(ctx)
	if st.TotalEntries != 0 {
		t.Fatalf("failed fetches must not populate the cache: %+v", st)
	}
}

func TestCacheStatsReportsConfiguredCache(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	dp := newTestProvider(t, src, func(o *Options[article]) {
		o.Cache = ConfiguredCache(memory.Config{MaxEntries: 7})
		o.DefaultTTL = time.Minute
	})
	defer dp.Close(ctx)

	_, _ = dp.Get(ctx, "company")
	_, _ = dp.Get(ctx, "about")

	st, err := dp.CacheStats(ctx)
	if err != nil {
		t.Fatalf("CacheStats: %v", err)
	}
	if !st.Enabled || st.TotalEntries != 2 || st.ValidEntries != 2 {
		t.Fatalf("stats = %+v", st)
	}
	if st.MaxSize != 7 || st.DefaultTTL != time.Minute {
		t.Fatalf("config not reflected in stats: %+v", st)
	}
	if len(st.Keys) != 2 {
		t.Fatalf("keys missing from stats: %+v", st)
	}
}

func TestCorruptEntrySelfHeals(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	bp := newBlindProvider()
	dp := newTestProvider(t, src, func(o *Options[article]) {
		o.Cache = CustomCache(bp)
	})
	defer dp.Close(ctx)

	// inject bytes no codec can decode
	bp.m[keys.ForGet("company")] = []byte("{not json")

	resp, err := dp.Get(ctx, "company")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Cached {
		t.Fatalf("corrupt entry must not hit")
	}
	if src.gets != 1 {
		t.Fatalf("corrupt entry should fall through to the source")
	}
	// the refetch overwrites the corrupt bytes; next call is a clean hit
	if r, _ := dp.Get(ctx, "company"); !r.Cached {
		t.Fatalf("entry should be healed after refetch")
	}
}
