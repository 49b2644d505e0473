// Package cache stores finished scan results so that re-running an
// unchanged tree with unchanged options is instant.
//
// Entries are opaque byte slices addressed by string keys. Keys are built by
// a [Keyer] from a hash of the input file and every option that influences
// the result; the pipeline only ever caches complete runs.
//
// Two implementations are provided: [FileCache] for the CLI, which keeps one
// JSON file per entry under the user cache directory, and [NullCache] for
// --no-cache and tests.
package cache

import (
	"context"
	"time"
)

// TTLResult is how long a cached scan result stays valid.
const TTLResult = 30 * 24 * time.Hour

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the entry for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// ResultKeyOpts lists the run options that change a scan result.
type ResultKeyOpts struct {
	Model          string `json:"model"`
	Replications   int    `json:"replications"`
	MaxCuts        int    `json:"max_cuts"`
	Seed           uint64 `json:"seed"`
	DuplicatesHash string `json:"duplicates_hash,omitempty"`
	CriticalValues bool   `json:"critical_values,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ResultKey returns the key of a scan result for an input whose
	// content hashes to inputHash.
	ResultKey(inputHash string, opts ResultKeyOpts) string
}

// DefaultKeyer builds unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ResultKey implements [Keyer]. The worker count is not part of the key
// since results do not depend on it.
func (DefaultKeyer) ResultKey(inputHash string, opts ResultKeyOpts) string {
	return hashKey("result", inputHash, opts)
}
