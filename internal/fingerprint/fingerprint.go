// Package fingerprint computes the content-addressed cache keys used by
// the cache layer: a namespace plus a stable hash of the inputs that
// determine an asset's content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key hashes namespace and parts together into a single cache key. Using
// a hash rather than concatenating raw parts keeps keys a fixed, short
// length regardless of prompt size.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return fmt.Sprintf("%s:%s", namespace, hex.EncodeToString(h.Sum(nil))[:32])
}
