// Package sloghooks emits datacache hook events through log/slog, with
// sampling on the hot hit/miss paths so steady-state traffic does not
// flood the log.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/qwickapps/datacache"
)

type Options struct {
	// Sampling for hot-path events; 0/1 = log all.
	HitEvery  uint64
	MissEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	hitCtr  atomic.Uint64
	missCtr atomic.Uint64
}

var _ datacache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Hit(key string) {
	if h.l == nil || !sample(h.opts.HitEvery, &h.hitCtr) {
		return
	}
	h.l.Debug("datacache.hit", "key", h.redact(key))
}

func (h *Hooks) Miss(key string) {
	if h.l == nil || !sample(h.opts.MissEvery, &h.missCtr) {
		return
	}
	h.l.Debug("datacache.miss", "key", h.redact(key))
}

func (h *Hooks) SelfHeal(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("datacache.self_heal",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) SetRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("datacache.set_rejected", "key", h.redact(key))
}

func (h *Hooks) StatsUnsupported(pattern string) {
	if h.l == nil {
		return
	}
	h.l.Info("datacache.wildcard_clear_unsupported", "pattern", pattern)
}

func (h *Hooks) ManualSet(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("datacache.manual_set", "key", h.redact(key))
}
