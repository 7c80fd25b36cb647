package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for article caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// ArticleKey generates a cache key from a blob-store content URI
func ArticleKey(uri string) string {
	hash := sha256.Sum256([]byte(uri))
	return "relayer:article:v1:" + hex.EncodeToString(hash[:])
}
