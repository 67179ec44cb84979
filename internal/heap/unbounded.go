package heap

import "cmp"

// Unbounded is a min-max heap that doubles its backing array on overflow
// instead of rejecting inserts. Used only where growth is required (the
// adaptive EM-PQ's in-memory regime before promotion).
type Unbounded[T any, K cmp.Ordered] struct {
	c core[T, K]
}

// NewUnbounded creates an Unbounded heap starting at the original library's
// default initial capacity (1024).
func NewUnbounded[T any, K cmp.Ordered](key Keyer[T, K], combine Combiner[T]) *Unbounded[T, K] {
	return &Unbounded[T, K]{c: newCore(unboundedInitialCapacity, key, combine)}
}

// NewUnboundedSize creates an Unbounded heap with an explicit initial capacity.
func NewUnboundedSize[T any, K cmp.Ordered](initial int, key Keyer[T, K], combine Combiner[T]) *Unbounded[T, K] {
	if initial < 1 {
		initial = 1
	}
	return &Unbounded[T, K]{c: newCore(initial, key, combine)}
}

// Len returns the current number of elements.
func (h *Unbounded[T, K]) Len() int { return h.c.size }

// Empty reports whether the heap holds no elements.
func (h *Unbounded[T, K]) Empty() bool { return h.c.size == 0 }

func (h *Unbounded[T, K]) grow() {
	newData := make([]T, len(h.c.data)*2)
	copy(newData, h.c.data)
	h.c.data = newData
}

// Insert places t at the tail, growing the backing array if necessary, and
// bubbles it up.
func (h *Unbounded[T, K]) Insert(t T) {
	if h.c.size == len(h.c.data)-1 {
		h.grow()
	}
	h.c.size++
	h.c.data[h.c.size] = t
	h.c.bubbleUp(h.c.size)
}

// Min returns the minimum element without removing it.
func (h *Unbounded[T, K]) Min() (T, bool) { return h.c.min() }

// Max returns the maximum element without removing it.
func (h *Unbounded[T, K]) Max() (T, bool) { return h.c.max() }

// ExtractMin removes and returns the minimum element.
func (h *Unbounded[T, K]) ExtractMin() (T, bool) { return h.c.extractMin() }

// ExtractMax removes and returns the maximum element.
func (h *Unbounded[T, K]) ExtractMax() (T, bool) { return h.c.extractMax() }

// ExtractAllMin repeatedly pulls the minimum while its key equals the first
// pulled key, combining values via the heap's Combiner.
func (h *Unbounded[T, K]) ExtractAllMin() (T, bool) { return h.c.extractAllMin() }

// Reset clears the heap, retaining its allocated array.
func (h *Unbounded[T, K]) Reset() { h.c.clear() }

// ExtractAllSortedDesc drains the heap by repeated ExtractMax, returning
// elements in descending key order. Used by adaptive promotion to split the
// MMH into an upper and lower half.
func (h *Unbounded[T, K]) ExtractAllSortedDesc() []T {
	out := make([]T, 0, h.Len())
	for {
		v, ok := h.ExtractMax()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
