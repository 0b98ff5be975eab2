package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

func Generate() uuid.UUID {
	return uuid.New()
}

func IsValidUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

// NewULID returns a lexicographically time ordered identifier, used for
// ledger records so that ids sort like their dates.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
