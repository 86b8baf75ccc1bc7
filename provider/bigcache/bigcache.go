// Package bigcache adapts allegro/bigcache to the provider contract.
// BigCache has no per-entry TTL; every entry lives for the configured
// LifeWindow, so the ttl argument to Set is ignored. Keys can be
// enumerated, which keeps wildcard invalidation working.
package bigcache

import (
	"context"
	"time"

	bc "github.com/allegro/bigcache/v3"
	pr "github.com/qwickapps/datacache/provider"
)

type Provider struct {
	c *bc.BigCache
}

var (
	_ pr.Provider      = (*Provider)(nil)
	_ pr.StatsProvider = (*Provider)(nil)
)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Provider, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (p *Provider) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	return true, p.c.Set(key, value)
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (p *Provider) Flush(context.Context) error {
	return p.c.Reset()
}

func (p *Provider) Close(context.Context) error {
	return p.c.Close()
}

// Stats enumerates current keys. BigCache bounds memory, not entry count,
// so MaxSize is reported as 0.
func (p *Provider) Stats(context.Context) (pr.Stats, error) {
	ks := make([]string, 0, p.c.Len())
	it := p.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		ks = append(ks, info.Key())
	}
	return pr.Stats{Size: len(ks), Keys: ks}, nil
}
