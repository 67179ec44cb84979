package heap

import "cmp"

// PQHeap is a 0-indexed bounded binary min-heap supporting min/extract_min/
// insert in O(log n). It is the single-ended analogue of the min-max heap
// (pqheap_t1 in the original library), for uses where only one direction of
// extraction is needed. No other package in this module uses it; the
// replacement-selection merger in internal/merge keeps its own heap.
type PQHeap[T any, K cmp.Ordered] struct {
	elements []T
	size     int
	key      Keyer[T, K]
}

// NewPQHeap creates a PQHeap with the given capacity.
func NewPQHeap[T any, K cmp.Ordered](capacity int, key Keyer[T, K]) *PQHeap[T, K] {
	return &PQHeap[T, K]{elements: make([]T, capacity), key: key}
}

func pqLeft(i int) int   { return 2*i + 1 }
func pqRight(i int) int  { return 2*i + 2 }
func pqParent(i int) int { return (i - 1) / 2 }

// Len returns the current number of elements.
func (h *PQHeap[T, K]) Len() int { return h.size }

// Full reports whether the heap is at capacity.
func (h *PQHeap[T, K]) Full() bool { return h.size == len(h.elements) }

// Empty reports whether the heap holds no elements.
func (h *PQHeap[T, K]) Empty() bool { return h.size == 0 }

// Insert places elt using bubble-up-to-root style insertion, matching the
// original library's single-pass shift-down-parents insert. Returns false
// if the heap is full.
func (h *PQHeap[T, K]) Insert(elt T) bool {
	if h.Full() {
		return false
	}
	i := h.size
	h.size++
	for i > 0 && h.key(h.elements[pqParent(i)]) > h.key(elt) {
		h.elements[i] = h.elements[pqParent(i)]
		i = pqParent(i)
	}
	h.elements[i] = elt
	return true
}

// Min returns the minimum element without removing it.
func (h *PQHeap[T, K]) Min() (T, bool) {
	var zero T
	if h.size == 0 {
		return zero, false
	}
	return h.elements[0], true
}

// ExtractMin removes and returns the minimum element.
func (h *PQHeap[T, K]) ExtractMin() (T, bool) {
	var zero T
	if h.size == 0 {
		return zero, false
	}
	out := h.elements[0]
	h.size--
	h.elements[0] = h.elements[h.size]
	var z T
	h.elements[h.size] = z
	if h.size > 0 {
		h.heapify(0)
	}
	return out, true
}

// DeleteMinAndInsert replaces the current minimum with x and re-heapifies,
// without returning the displaced minimum. Used to optimise merge loops.
func (h *PQHeap[T, K]) DeleteMinAndInsert(x T) {
	if h.size == 0 {
		return
	}
	h.elements[0] = x
	h.heapify(0)
}

// Fill bulk-loads up to capacity elements from arr, returning the count that
// did not fit.
func (h *PQHeap[T, K]) Fill(arr []T) int {
	i := 0
	for ; i < len(arr); i++ {
		if !h.Insert(arr[i]) {
			break
		}
	}
	return len(arr) - i
}

func (h *PQHeap[T, K]) heapify(root int) {
	minIdx := root
	l, r := pqLeft(root), pqRight(root)
	if l < h.size && h.key(h.elements[l]) < h.key(h.elements[minIdx]) {
		minIdx = l
	}
	if r < h.size && h.key(h.elements[r]) < h.key(h.elements[minIdx]) {
		minIdx = r
	}
	if minIdx != root {
		h.elements[minIdx], h.elements[root] = h.elements[root], h.elements[minIdx]
		h.heapify(minIdx)
	}
}
