package progress

import (
	"sync"
	"time"

	"github.com/seekrai/jobsearch/internal/search"
)

// table is the in-process fallback backend: a mutex-guarded map with lazy
// per-entry expiry mirroring the shared cache's TTL behavior. The lock is
// never held across a network call.
type table struct {
	mu      sync.Mutex
	entries map[string]tableEntry
}

type tableEntry struct {
	rec       search.ProgressRecord
	expiresAt time.Time
}

func newTable() *table {
	return &table{entries: make(map[string]tableEntry)}
}

func (t *table) put(jobID string, rec search.ProgressRecord, ttl time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[jobID] = tableEntry{
		rec:       rec,
		expiresAt: time.Now().Add(ttl),
	}
}

func (t *table) get(jobID string) (search.ProgressRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[jobID]
	if !ok {
		return search.ProgressRecord{}, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(t.entries, jobID)
		return search.ProgressRecord{}, false
	}
	return entry.rec, true
}

func (t *table) delete(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, jobID)
}
