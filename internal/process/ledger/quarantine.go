// Package ledger holds the in-memory sets shared between the bot and relay sessions.
// Nothing here survives a restart.
package ledger

import (
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Quarantine is the set of destination ids excluded from delivery.
type Quarantine struct {
	mu  sync.RWMutex
	ids map[int64]struct{}
}

// NewQuarantine creates an empty quarantine ledger.
func NewQuarantine() *Quarantine {
	return &Quarantine{ids: make(map[int64]struct{})}
}

// Add quarantines id. Adding an existing id is a no-op.
func (q *Quarantine) Add(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.ids[id] = struct{}{}
}

// Remove lifts the quarantine for id.
func (q *Quarantine) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.ids, id)
}

func (q *Quarantine) Contains(id int64) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	_, ok := q.ids[id]

	return ok
}

// Clear empties the ledger and returns how many ids were removed.
func (q *Quarantine) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.ids)
	q.ids = make(map[int64]struct{})

	return n
}

func (q *Quarantine) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return len(q.ids)
}

// Snapshot returns the quarantined ids in ascending order.
func (q *Quarantine) Snapshot() []int64 {
	q.mu.RLock()
	ids := lo.Keys(q.ids)
	q.mu.RUnlock()

	slices.Sort(ids)

	return ids
}

// Exclude returns ids minus the quarantined ones, preserving order.
func (q *Quarantine) Exclude(ids []int64) []int64 {
	q.mu.RLock()
	defer q.mu.RUnlock()

	return lo.Filter(ids, func(id int64, _ int) bool {
		_, quarantined := q.ids[id]
		return !quarantined
	})
}
