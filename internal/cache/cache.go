package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw stage responses so a retried stage invocation with the
// same payload is idempotent against the service.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a stage endpoint and request payload.
func Key(endpoint string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(endpoint))
	h.Write([]byte{0})
	h.Write(payload)
	return "annotext:v1:" + hex.EncodeToString(h.Sum(nil))
}
