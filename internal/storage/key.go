package storage

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// validateKey rejects keys that cannot map onto every backend.
// Segments hold IDs, ULIDs, and short names; anything path-like is out.
func validateKey(key string) error {
	if key == "" {
		return ErrBadKey
	}
	for _, seg := range strings.Split(key, ":") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrBadKey
		}
		if strings.ContainsAny(seg, "/\\\x00") {
			return ErrBadKey
		}
	}
	return nil
}

// keyToPath converts a ':'-separated key to a relative slash path.
func keyToPath(key string) string {
	return strings.ReplaceAll(key, ":", "/")
}

// pathToKey converts a relative slash path back to a key.
func pathToKey(rel string) string {
	return strings.ReplaceAll(path.Clean(rel), "/", ":")
}

// matchKey applies a doublestar pattern to a key. Both use ':' segments,
// so '*' stays within one segment and '**' spans segments.
func matchKey(pattern, key string) (bool, error) {
	return doublestar.Match(keyToPath(pattern), keyToPath(key))
}
