package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key builds a namespaced cache key for a registry lookup. The prefix names
// the data source ("anaconda", "anaconda-deps") so entries from different
// endpoints cannot collide; the remaining parts (channel, package, version)
// are hashed so arbitrary values stay safe as keys.
func Key(prefix string, parts ...any) string {
	raw, _ := json.Marshal(parts)
	return fmt.Sprintf("%s:%s", prefix, Hash(raw))
}

// Hash returns the full SHA-256 digest of data as 64 hex characters.
// The file backend also uses it to map keys onto sharded file names.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
