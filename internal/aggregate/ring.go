package aggregate

// ring is a fixed-capacity ring buffer. Appending past capacity drops
// the oldest element. It is not safe for concurrent use: the aggregator
// is single-writer, and readers only ever see slices copied out of a
// ring at commit time.
type ring[T any] struct {
	items []T
	head  int // next write position
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity <= 0 {
		panic("ring capacity must be greater than zero")
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) append(v T) {
	r.items[r.head] = v
	r.head = (r.head + 1) % len(r.items)
	if r.size < len(r.items) {
		r.size++
	}
}

// copyOut returns the ring's contents oldest to newest in a fresh slice.
func (r *ring[T]) copyOut() []T {
	if r.size == 0 {
		return nil
	}
	out := make([]T, r.size)
	if r.size < len(r.items) {
		copy(out, r.items[:r.size])
	} else {
		n := copy(out, r.items[r.head:])
		copy(out[n:], r.items[:r.head])
	}
	return out
}

func (r *ring[T]) len() int {
	return r.size
}
