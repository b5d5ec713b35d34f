package store

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// idEntropy is a process-wide monotonic entropy source for ulid.New, guarded
// by a mutex since ulid.MonotonicReader is not safe for concurrent use.
var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newID mints a new opaque 128-bit breadcrumb or edge identifier: a ulid,
// lexicographically sortable by creation time, giving list a natural
// secondary sort and making the §4.4 tie-break-by-id-order rule a plain
// byte comparison.
func newID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), idEntropy).String()
}
