package reduce

import "container/heap"

// resultHeap adapts a []SearchResult plus a Comparator to container/heap,
// arranged so the root (index 0) is always the *worst* currently kept
// entry by better — the classic top-K heap shape from the GoSearch
// coordinator's hitHeap, generalized to an injected comparator.
type resultHeap struct {
	items  []SearchResult
	better Comparator
}

func (h resultHeap) Len() int { return len(h.items) }

// Less reports i before j in heap order; since the root must be the
// worst entry, i goes before j when j is better than i.
func (h resultHeap) Less(i, j int) bool { return h.better(h.items[j], h.items[i]) }

func (h resultHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *resultHeap) Push(x interface{}) { h.items = append(h.items, x.(SearchResult)) }

func (h *resultHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// TopKHeap keeps the best `capacity` SearchResults seen via Offer,
// ordered by a Comparator (top-K heap of size L+O).
type TopKHeap struct {
	h        resultHeap
	capacity int
}

// NewTopKHeap creates a heap that retains at most capacity entries,
// evicting the worst one whenever a better candidate arrives once full.
func NewTopKHeap(capacity int, better Comparator) *TopKHeap {
	if capacity < 1 {
		capacity = 1
	}
	return &TopKHeap{
		h:        resultHeap{items: make([]SearchResult, 0, capacity), better: better},
		capacity: capacity,
	}
}

// Offer considers one candidate result. If the heap has room, it is
// pushed unconditionally; otherwise it replaces the current worst entry
// only if it is better than that entry.
func (k *TopKHeap) Offer(r SearchResult) {
	if k.h.Len() < k.capacity {
		heap.Push(&k.h, r)
		return
	}
	if k.h.Len() == 0 {
		return
	}
	worst := k.h.items[0]
	if k.h.better(r, worst) {
		k.h.items[0] = r
		heap.Fix(&k.h, 0)
	}
}

// Worst returns the current worst-kept entry and whether the heap is at
// capacity — callers use this to short-circuit further parsing of an
// already-sorted shard reply once no remaining candidate can improve on
// it.
func (k *TopKHeap) Worst() (SearchResult, bool) {
	if k.h.Len() < k.capacity {
		return SearchResult{}, false
	}
	return k.h.items[0], true
}

// Better reports whether r would improve on the current worst entry;
// always true while the heap has room.
func (k *TopKHeap) Better(r SearchResult) bool {
	worst, full := k.Worst()
	if !full {
		return true
	}
	return k.h.better(r, worst)
}

// Len reports the number of entries currently kept.
func (k *TopKHeap) Len() int { return k.h.Len() }

// Drain pops every entry and returns them ordered best-first: the heap
// pops worst-first, so the result is reversed before returning.
func (k *TopKHeap) Drain() []SearchResult {
	n := k.h.Len()
	out := make([]SearchResult, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = heap.Pop(&k.h).(SearchResult)
	}
	return out
}
