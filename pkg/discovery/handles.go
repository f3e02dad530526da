package discovery

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/wardenfs/pkg/workspace"
)

// HandleTTL is how long an issued folder handle stays resolvable.
const HandleTTL = 30 * time.Minute

type handleRecord struct {
	folder    *workspace.Path
	expiresAt time.Time
}

// HandleCache issues opaque folder handles and resolves them back to
// folder paths until they expire.
//
// Handles are random tokens with no encoded structure; holding one grants
// nothing, since every operation that resolves a handle still runs the
// full permission check against the folder behind it. An expired record
// that has not been swept yet behaves exactly like one that was: the TTL
// is checked at resolve time, sweeping only reclaims memory.
type HandleCache struct {
	mu      sync.RWMutex
	records map[string]handleRecord
	clock   workspace.Clock
	ttl     time.Duration
}

// NewHandleCache builds a handle cache with the standard TTL.
func NewHandleCache(clock workspace.Clock) *HandleCache {
	return &HandleCache{
		records: make(map[string]handleRecord),
		clock:   clock,
		ttl:     HandleTTL,
	}
}

// Issue registers a folder path and returns a fresh opaque handle for it.
// Each call issues a distinct handle, even for the same folder.
func (c *HandleCache) Issue(folder *workspace.Path) string {
	handle := uuid.NewString()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[handle] = handleRecord{
		folder:    folder,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
	return handle
}

// Resolve returns the folder path behind a handle. Unknown and expired
// handles are indistinguishable to the caller; both get the same error
// telling them to re-run discovery.
func (c *HandleCache) Resolve(handle string) (*workspace.Path, error) {
	c.mu.RLock()
	record, ok := c.records[handle]
	c.mu.RUnlock()

	if !ok || !c.clock.Now().Before(record.expiresAt) {
		return nil, workspace.NewHandleExpired()
	}
	return record.folder, nil
}

// Sweep removes expired records and returns how many were reclaimed.
func (c *HandleCache) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for handle, record := range c.records {
		if !now.Before(record.expiresAt) {
			delete(c.records, handle)
			removed++
		}
	}
	return removed
}

// Len returns the number of live records, expired-but-unswept included.
func (c *HandleCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
