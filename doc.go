// Package datacache interposes a pluggable cache in front of an arbitrary
// content source. It is the caching layer of a CMS-style data pipeline:
// callers keep talking to the same Get/Select surface, and the wrapper
// decides per call whether to serve from cache or from the source.
//
// Components:
//   - Source[V]: the wrapped collaborator (single-item Get by slug,
//     multi-item Select by schema + query options).
//   - Provider: byte store with TTL (memory LRU by default; Ristretto,
//     BigCache and expirable-LRU adapters included).
//   - Codec[V]: (de)serializes V <-> []byte for storage.
//
// Keys:
//
//	get:<slug>                       - single entries
//	select:<schema>:<options-json>   - query entries (digested when long)
//
// Cache behavior is chosen at construction with a CacheChoice:
// NoCache (pass-through), DefaultCache, ConfiguredCache (memory cache with
// explicit bounds), or CustomCache (caller-supplied Provider). A miss
// fetches from the source and stores the payload; a hit is served from the
// cache without touching the source unless FreshMeta is set, in which case
// the source is still consulted for envelope metadata and only the data
// payload is substituted from cache.
package datacache
