package nearest

import "sync"

// Synchronized guards a BoundedTopK with its own mutex so that producers
// writing to different owners never contend.
type Synchronized[O comparable, T any] struct {
	mu sync.Mutex
	b  *BoundedTopK[O, T]
}

// NewSynchronized returns an empty, concurrency-safe container.
func NewSynchronized[O comparable, T any](owner O, k int) (*Synchronized[O, T], error) {
	b, err := New[O, T](owner, k)
	if err != nil {
		return nil, err
	}
	return &Synchronized[O, T]{b: b}, nil
}

// Owner returns the key the container was built for.
func (s *Synchronized[O, T]) Owner() O { return s.b.Owner() }

// Insert offers item under rank; see BoundedTopK.Insert.
func (s *Synchronized[O, T]) Insert(item T, rank float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Insert(item, rank)
}

// Len returns the number of retained items.
func (s *Synchronized[O, T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Len()
}

// IsEmpty reports whether nothing is retained.
func (s *Synchronized[O, T]) IsEmpty() bool {
	return s.Len() == 0
}

// Ranked returns a consistent snapshot of the retained items, best first.
func (s *Synchronized[O, T]) Ranked() []Ranked[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Ranked()
}

// Ordered returns a consistent snapshot of the retained items ascending by rank.
func (s *Synchronized[O, T]) Ordered() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Ordered()
}
