package heap

import "cmp"

// Bounded is a fixed-capacity min-max heap, used inside the EM-PQ for
// predictable memory: insert fails when full rather than growing.
type Bounded[T any, K cmp.Ordered] struct {
	c core[T, K]
}

// NewBounded creates a Bounded heap with the given capacity.
func NewBounded[T any, K cmp.Ordered](capacity int, key Keyer[T, K], combine Combiner[T]) *Bounded[T, K] {
	return &Bounded[T, K]{c: newCore(capacity, key, combine)}
}

// Capacity returns the maximum number of elements the heap can hold.
func (h *Bounded[T, K]) Capacity() int { return len(h.c.data) - 1 }

// Len returns the current number of elements.
func (h *Bounded[T, K]) Len() int { return h.c.size }

// Full reports whether the heap is at capacity.
func (h *Bounded[T, K]) Full() bool { return h.c.size == h.Capacity() }

// Empty reports whether the heap holds no elements.
func (h *Bounded[T, K]) Empty() bool { return h.c.size == 0 }

// Insert places t at the tail and bubbles it up. It returns false if the
// heap is already full.
func (h *Bounded[T, K]) Insert(t T) bool {
	if h.Full() {
		return false
	}
	h.c.size++
	h.c.data[h.c.size] = t
	h.c.bubbleUp(h.c.size)
	return true
}

// Fill bulk-loads up to capacity elements from arr, returning the count that
// did not fit.
func (h *Bounded[T, K]) Fill(arr []T) int {
	i := 0
	for ; i < len(arr); i++ {
		if !h.Insert(arr[i]) {
			break
		}
	}
	return len(arr) - i
}

// Min returns the minimum element without removing it.
func (h *Bounded[T, K]) Min() (T, bool) { return h.c.min() }

// Max returns the maximum element without removing it.
func (h *Bounded[T, K]) Max() (T, bool) { return h.c.max() }

// ExtractMin removes and returns the minimum element.
func (h *Bounded[T, K]) ExtractMin() (T, bool) { return h.c.extractMin() }

// ExtractMax removes and returns the maximum element.
func (h *Bounded[T, K]) ExtractMax() (T, bool) { return h.c.extractMax() }

// ExtractAllMin repeatedly pulls the minimum while its key equals the first
// pulled key, combining values via the heap's Combiner.
func (h *Bounded[T, K]) ExtractAllMin() (T, bool) { return h.c.extractAllMin() }

// Reset clears the heap, retaining its allocated array.
func (h *Bounded[T, K]) Reset() { h.c.clear() }

// Clear is an alias for Reset, matching the original library's naming.
func (h *Bounded[T, K]) Clear() { h.c.clear() }
