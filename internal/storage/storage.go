package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"
)

type Storage interface {
	// Put stores data with the given key and returns the storage URL
	Put(ctx context.Context, key string, data []byte) (string, error)
	// Get retrieves data from the given storage URL
	Get(ctx context.Context, url string) ([]byte, error)
}

const timestampLayout = "20060102150405"

// Key builds "<kind>/<hash>/<timestamp>" where hash is the first 16 hex
// digits of the SHA-256 of seeds. Artifacts of the same inputs share the
// hash directory.
func Key(kind string, at time.Time, seeds ...string) string {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write([]byte(seed))
	}
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]

	return fmt.Sprintf("%s/%s/%s", kind, hash, at.UTC().Format(timestampLayout))
}
