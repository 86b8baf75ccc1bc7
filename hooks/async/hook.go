// Package asynchook decouples hook callbacks from the caller's hot path.
// Events are handed to a bounded queue and replayed on worker goroutines;
// when the queue is full the event is dropped rather than blocking a
// cache operation.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    HitEvery:  100, // sample logs: ~every 100th hit
//	    MissEvery: 10,
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	dp, _ := datacache.New[Article](datacache.Options[Article]{
//	    Source: src,
//	    Hooks:  hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/qwickapps/datacache"
)

type Hooks struct {
	inner datacache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ datacache.Hooks = (*Hooks)(nil)

func New(inner datacache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Hit(k string)                 { h.try(func() { h.inner.Hit(k) }) }
func (h *Hooks) Miss(k string)                { h.try(func() { h.inner.Miss(k) }) }
func (h *Hooks) SelfHeal(k string, err error) { h.try(func() { h.inner.SelfHeal(k, err) }) }
func (h *Hooks) SetRejected(k string)         { h.try(func() { h.inner.SetRejected(k) }) }
func (h *Hooks) StatsUnsupported(p string)    { h.try(func() { h.inner.StatsUnsupported(p) }) }
func (h *Hooks) ManualSet(k string)           { h.try(func() { h.inner.ManualSet(k) }) }
