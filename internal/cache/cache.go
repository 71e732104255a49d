// Package cache memoizes scores of texts already seen by a scorer.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache stores probabilities keyed by CacheKey
type Cache interface {
	Get(key string) (float64, bool)
	Set(key string, score float64)
	Clear()
	Len() int
}

// CacheKey derives a fixed-size key from a review text
func CacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return "sentimenta:v1:" + hex.EncodeToString(hash[:])
}
