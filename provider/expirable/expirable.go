// Package expirable adapts hashicorp/golang-lru's expirable LRU to the
// provider contract. Unlike the memory provider, TTL here is one global
// window fixed at construction and a read refreshes an entry's recency and
// its expiry together; per-call TTLs passed to Set are ignored.
package expirable

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	pr "github.com/qwickapps/datacache/provider"
)

type Provider struct {
	c    *lru.LRU[string, []byte]
	size int
}

var (
	_ pr.Provider      = (*Provider)(nil)
	_ pr.StatsProvider = (*Provider)(nil)
)

// New builds an expirable LRU holding at most size entries, each living for
// ttl after its last write. ttl 0 disables expiry.
func New(size int, ttl time.Duration) *Provider {
	return &Provider{
		c:    lru.NewLRU[string, []byte](size, nil, ttl),
		size: size,
	}
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := p.c.Get(key)
	return b, ok, nil
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	p.c.Add(key, value)
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Remove(key)
	return nil
}

func (p *Provider) Flush(context.Context) error {
	p.c.Purge()
	return nil
}

// Close purges entries. The upstream LRU's expiry goroutine has no public
// stop in v2.0.7 and exits with the process.
func (p *Provider) Close(ctx context.Context) error { return p.Flush(ctx) }

func (p *Provider) Stats(context.Context) (pr.Stats, error) {
	ks := p.c.Keys()
	return pr.Stats{Size: len(ks), MaxSize: p.size, Keys: ks}, nil
}
