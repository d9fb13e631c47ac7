package ledger

import "sync"

// DefaultProcessedCapacity bounds the processed-message ledger.
const DefaultProcessedCapacity = 1000

// Processed remembers message ids that already went through a delivery cycle.
// When full, the oldest id is evicted first.
type Processed struct {
	mu       sync.Mutex
	capacity int
	order    []int64
	ids      map[int64]struct{}
}

// NewProcessed creates a ledger holding at most capacity ids.
// A non-positive capacity falls back to DefaultProcessedCapacity.
func NewProcessed(capacity int) *Processed {
	if capacity <= 0 {
		capacity = DefaultProcessedCapacity
	}

	return &Processed{
		capacity: capacity,
		ids:      make(map[int64]struct{}),
	}
}

// Add records id and reports whether it was new.
func (p *Processed) Add(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.ids[id]; ok {
		return false
	}

	p.ids[id] = struct{}{}
	p.order = append(p.order, id)

	for len(p.order) > p.capacity {
		delete(p.ids, p.order[0])
		p.order = p.order[1:]
	}

	return true
}

func (p *Processed) Contains(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.ids[id]

	return ok
}

// Clear empties the ledger and returns how many ids were removed.
func (p *Processed) Clear() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.order)
	p.order = nil
	p.ids = make(map[int64]struct{})

	return n
}

func (p *Processed) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.order)
}
