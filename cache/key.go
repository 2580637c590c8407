package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Key fingerprints the identifying parameters of a remote request.
func Key(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
