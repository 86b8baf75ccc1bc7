package datacache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the wrapper calls them
// on hot paths.
type Hooks interface {
	// A lookup was served from cache.
	Hit(key string)

	// A lookup fell through to the source.
	Miss(key string)

	// A stored entry failed to decode and was deleted on read.
	SelfHeal(key string, err error)

	// Provider returned ok=false on Set (admission/pressure).
	SetRejected(key string)

	// A wildcard ClearCache degraded to a no-op because the provider does
	// not support enumeration.
	StatsUnsupported(pattern string)

	// An entry was seeded manually, bypassing any fetch.
	ManualSet(key string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Hit(string)              {}
func (NopHooks) Miss(string)             {}
func (NopHooks) SelfHeal(string, error)  {}
func (NopHooks) SetRejected(string)      {}
func (NopHooks) StatsUnsupported(string) {}
func (NopHooks) ManualSet(string)        {}
