// Package pool implements the fixed-capacity free-list allocator from
// spec.md §4.1: allocate returns nil on exhaustion at the raw level, but
// the typed wrapper (Pool[T]) always succeeds by falling back to a heap
// allocation and counting the exhaustion event for observability. Pool
// exhaustion never blocks a hot path.
package pool

import "sync/atomic"

// freeList is a lock-free stack of indices into a pre-allocated slab,
// implemented with an atomic head and per-node next pointers encoded as
// indices (so the stack itself never allocates after construction).
type freeList struct {
	head atomic.Int64 // -1 means empty
	next []int64
}

func newFreeList(capacity int) *freeList {
	fl := &freeList{next: make([]int64, capacity)}
	for i := 0; i < capacity; i++ {
		if i == capacity-1 {
			fl.next[i] = -1
		} else {
			fl.next[i] = int64(i + 1)
		}
	}
	fl.head.Store(0)
	return fl
}

// popIndex removes and returns a free slab index, or -1 if exhausted.
func (fl *freeList) popIndex() int64 {
	for {
		head := fl.head.Load()
		if head < 0 {
			return -1
		}
		next := fl.next[head]
		if fl.head.CompareAndSwap(head, next) {
			return head
		}
	}
}

// pushIndex returns idx to the free list.
func (fl *freeList) pushIndex(idx int64) {
	for {
		head := fl.head.Load()
		fl.next[idx] = head
		if fl.head.CompareAndSwap(head, idx) {
			return
		}
	}
}

// Pool is a typed fixed-capacity object pool. Get never returns nil: on
// slab exhaustion it falls back to a heap allocation via New and bumps
// Exhaustions. Put returns a slab-backed item to the free list; a
// heap-fallback item is simply dropped for the GC to collect.
type Pool[T any] struct {
	slab    []T
	fl      *freeList
	New     func() T
	Destroy func(*T)

	exhaustions atomic.Uint64
	hits        atomic.Uint64
}

// NewPool builds a pool with capacity pre-allocated objects. newFn
// fills the slab and constructs a fresh T on exhaustion fallback; the
// pool itself never calls the Destroy field.
func NewPool[T any](capacity int, newFn func() T) *Pool[T] {
	p := &Pool[T]{
		slab: make([]T, capacity),
		fl:   newFreeList(capacity),
		New:  newFn,
	}
	for i := range p.slab {
		p.slab[i] = newFn()
	}
	return p
}

// Get returns an item and an opaque token to pass back to Put.
func (p *Pool[T]) Get() (T, int64) {
	idx := p.fl.popIndex()
	if idx < 0 {
		p.exhaustions.Add(1)
		return p.New(), -1
	}
	p.hits.Add(1)
	return p.slab[idx], idx
}

// Put returns an item to the pool using the token returned by Get. Items
// from the heap fallback (token -1) are dropped.
func (p *Pool[T]) Put(v T, token int64) {
	if token < 0 {
		return
	}
	p.slab[token] = v
	p.fl.pushIndex(token)
}

// Exhaustions returns the count of Get calls that had to fall back to a
// heap allocation because the slab was empty.
func (p *Pool[T]) Exhaustions() uint64 {
	return p.exhaustions.Load()
}

// Hits returns the count of Get calls served from the slab.
func (p *Pool[T]) Hits() uint64 {
	return p.hits.Load()
}

// Cap returns the slab capacity.
func (p *Pool[T]) Cap() int {
	return len(p.slab)
}
