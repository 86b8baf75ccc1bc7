// Package keys derives cache keys from operation names and call
// parameters, and translates '*' wildcard patterns for invalidation.
package keys

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

const (
	GetPrefix    = "get:"
	SelectPrefix = "select:"

	// Select keys embed the serialized query options verbatim up to this
	// length; longer option blobs are digested to keep keys bounded.
	maxInlineOptions = 256
)

// ForGet returns the cache key for a single-item lookup.
func ForGet(slug string) string { return GetPrefix + slug }

// ForSelect returns the cache key for a query. options must already be a
// canonical serialization (equal queries yield equal bytes).
func ForSelect(schema string, options []byte) string {
	if len(options) > maxInlineOptions {
		sum := sha256.Sum256(options)
		return fmt.Sprintf("%s%s:%x", SelectPrefix, schema, sum[:8])
	}
	return SelectPrefix + schema + ":" + string(options)
}

// HasWildcard reports whether pattern contains the '*' metacharacter.
func HasWildcard(pattern string) bool { return strings.Contains(pattern, "*") }

// WildcardRegexp compiles a '*' pattern into an anchored regexp. '*'
// matches any run of characters; everything else matches literally.
func WildcardRegexp(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}
