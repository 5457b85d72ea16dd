// Package idgen provides the monotonic clock and unique id generator the
// broker uses to stamp connections and message envelopes.
package idgen

import (
	"time"

	"github.com/google/uuid"
)

// Clock abstracts wall-clock access so tests can substitute a fixed or
// stepped time source without sleeping.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Source mints unique identifiers for connections and message envelopes.
type Source interface {
	NewID() string
}

// UUIDSource mints RFC 4122 v4 identifiers via github.com/google/uuid.
type UUIDSource struct{}

// NewID returns a new random UUID string.
func (UUIDSource) NewID() string {
	return uuid.NewString()
}
