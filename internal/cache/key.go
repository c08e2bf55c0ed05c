// Package cache implements the optional response cache: an in-process LRU
// tier backed by golang-lru and a shared Redis tier.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

const keyPrefix = "medsafety"

// BuildKey hashes parts into an opaque key under namespace. Parts are
// separated by NUL so that ("ab", "c") and ("a", "bc") never collide.
func BuildKey(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return keyPrefix + ":" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}
