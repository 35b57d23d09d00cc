// Package nearest provides a fixed-capacity container that keeps the K
// lowest-ranked items offered to it.
//
// Ordering: rank ASC, then insertion sequence ASC. Among items with equal rank
// the earlier insertion is retained, and an item whose rank equals the
// current worst at capacity is rejected. The retained set is therefore
// always the K smallest (rank, sequence) pairs ever offered.
//
// The worst retained item sits at the root of a max-heap so that insertion
// and eviction are O(log K) and Len/IsEmpty/Worst are O(1).
package nearest

import (
	"container/heap"
	"math"
	"sort"
)

// Ranked pairs an item with the rank it was inserted under.
type Ranked[T any] struct {
	Item T
	Rank float64
}

type entry[T any] struct {
	item T
	rank float64
	seq  uint64
}

// worse reports whether a ranks after b.
func worse[T any](a, b entry[T]) bool {
	if a.rank != b.rank {
		return a.rank > b.rank
	}
	return a.seq > b.seq
}

// maxHeap keeps the worst entry at index 0.
type maxHeap[T any] []entry[T]

func (h maxHeap[T]) Len() int           { return len(h) }
func (h maxHeap[T]) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h maxHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap[T]) Push(x any)        { *h = append(*h, x.(entry[T])) }
func (h *maxHeap[T]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	var zero entry[T]
	old[n-1] = zero
	*h = old[:n-1]
	return e
}

// BoundedTopK retains the K lowest-ranked items for an owner. It is not safe
// for concurrent use; see Synchronized.
type BoundedTopK[O comparable, T any] struct {
	owner O
	k     int
	seq   uint64
	h     maxHeap[T]
}

// New returns an empty container of capacity k for owner.
// It returns ErrInvalidCapacity when k < 1.
func New[O comparable, T any](owner O, k int) (*BoundedTopK[O, T], error) {
	if k < 1 {
		return nil, ErrInvalidCapacity
	}
	return &BoundedTopK[O, T]{owner: owner, k: k, h: make(maxHeap[T], 0, k)}, nil
}

// Owner returns the key the container was built for.
func (b *BoundedTopK[O, T]) Owner() O { return b.owner }

// Cap returns K.
func (b *BoundedTopK[O, T]) Cap() int { return b.k }

// Len returns the number of retained items.
func (b *BoundedTopK[O, T]) Len() int { return len(b.h) }

// IsEmpty reports whether nothing is retained.
func (b *BoundedTopK[O, T]) IsEmpty() bool { return len(b.h) == 0 }

// Worst returns the largest retained rank.
func (b *BoundedTopK[O, T]) Worst() (float64, bool) {
	if len(b.h) == 0 {
		return 0, false
	}
	return b.h[0].rank, true
}

// Insert offers item under rank and reports whether it was retained.
// Below capacity every item is kept. At capacity the item replaces the
// current worst only when its rank is strictly smaller; otherwise it is
// dropped and the retained set is unchanged. NaN ranks are always dropped.
func (b *BoundedTopK[O, T]) Insert(item T, rank float64) bool {
	if math.IsNaN(rank) {
		return false
	}
	b.seq++
	e := entry[T]{item: item, rank: rank, seq: b.seq}
	if len(b.h) < b.k {
		heap.Push(&b.h, e)
		return true
	}
	if worst, _ := b.Worst(); rank >= worst {
		return false
	}
	b.h[0] = e
	heap.Fix(&b.h, 0)
	return true
}

// Ranked returns the retained items with their ranks, best first.
func (b *BoundedTopK[O, T]) Ranked() []Ranked[T] {
	sorted := make([]entry[T], len(b.h))
	copy(sorted, b.h)
	sort.Slice(sorted, func(i, j int) bool { return worse(sorted[j], sorted[i]) })

	out := make([]Ranked[T], len(sorted))
	for i, e := range sorted {
		out[i] = Ranked[T]{Item: e.item, Rank: e.rank}
	}
	return out
}

// Ordered returns the retained items ascending by rank.
func (b *BoundedTopK[O, T]) Ordered() []T {
	ranked := b.Ranked()
	out := make([]T, len(ranked))
	for i, r := range ranked {
		out[i] = r.Item
	}
	return out
}
