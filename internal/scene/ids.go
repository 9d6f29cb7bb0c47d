package scene

import "sync/atomic"

// Allocator hands out process-local identifiers. Every scene owns one so
// tests can construct independent id spaces; on the authoritative scene the
// allocated local ids double as canonical ids.
type Allocator struct {
	next atomic.Int64
}

// NewAllocator returns an allocator whose first id is 1.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns a fresh, strictly increasing id.
func (a *Allocator) Next() Id {
	return Id(a.next.Add(1))
}

// Reserve advances the allocator past id so future allocations never collide
// with identifiers adopted from a snapshot.
func (a *Allocator) Reserve(id Id) {
	for {
		current := a.next.Load()
		if current >= int64(id) {
			return
		}
		if a.next.CompareAndSwap(current, int64(id)) {
			return
		}
	}
}
