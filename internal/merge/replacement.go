// Package merge implements the replacement-selection heap used to perform
// a k-way merge over any set of ordered sources. It is grounded on the
// original library's ReplacementHeap/ReplacementHeapBlock: a 0-indexed
// binary min-heap of (current value, source) pairs, where consuming the
// minimum immediately pulls the next value from the same source, and a
// source that runs dry is evicted by swapping it with the last live entry.
//
// The sort engine's merge phase and the EM priority queue's buffer promotion
// use it to merge on-disk streams (sources backed by typed streams). The
// sort engine's run formation does not merge in-memory sub-runs; SliceSource
// is a slice-backed Source that no other package in this module uses. All
// sources go through the Source interface so this package carries no I/O of
// its own.
package merge

import (
	"cmp"
	"errors"

	"iostream"
)

// Source yields successive values in non-decreasing key order. Next
// returns iostream.ErrEndOfStream when exhausted.
type Source[T any] interface {
	Next() (T, error)
}

type entry[T any] struct {
	value T
	src   Source[T]
}

// Heap is a k-way replacement-selection merger over sources of type T keyed
// by K.
type Heap[T any, K cmp.Ordered] struct {
	heap []entry[T]
	size int
	key  func(T) K
}

// New builds a Heap over sources, pulling one value from each during
// construction. A source that is already exhausted is dropped silently.
func New[T any, K cmp.Ordered](sources []Source[T], key func(T) K) (*Heap[T, K], error) {
	h := &Heap[T, K]{
		heap: make([]entry[T], len(sources)),
		key:  key,
	}
	for _, s := range sources {
		h.heap[h.size] = entry[T]{src: s}
		h.size++
	}

	i := 0
	for i < h.size {
		v, err := h.heap[i].src.Next()
		if err != nil {
			if errors.Is(err, iostream.ErrEndOfStream) {
				h.deleteRun(i)
				continue
			}
			return nil, err
		}
		h.heap[i].value = v
		i++
	}
	h.buildheap()
	return h, nil
}

// Empty reports whether every source has been exhausted.
func (h *Heap[T, K]) Empty() bool { return h.size == 0 }

func rLeft(i int) int   { return 2*i + 1 }
func rRight(i int) int  { return 2*i + 2 }
func rParent(i int) int { return (i - 1) / 2 }

func (h *Heap[T, K]) deleteRun(i int) {
	if h.size > 1 {
		h.heap[i] = h.heap[h.size-1]
	}
	h.size--
}

func (h *Heap[T, K]) heapify(i int) {
	minIdx := i
	l, r := rLeft(i), rRight(i)
	if l < h.size && h.key(h.heap[l].value) < h.key(h.heap[minIdx].value) {
		minIdx = l
	}
	if r < h.size && h.key(h.heap[r].value) < h.key(h.heap[minIdx].value) {
		minIdx = r
	}
	if minIdx != i {
		h.heap[minIdx], h.heap[i] = h.heap[i], h.heap[minIdx]
		h.heapify(minIdx)
	}
}

func (h *Heap[T, K]) buildheap() {
	if h.size <= 1 {
		return
	}
	for i := rParent(h.size - 1); i >= 0; i-- {
		h.heapify(i)
	}
}

// ExtractMin removes and returns the minimum element, pulling the source's
// next value into its place (or evicting the source if exhausted). Returns
// ok=false if the heap is empty.
func (h *Heap[T, K]) ExtractMin() (T, bool, error) {
	var zero T
	if h.size == 0 {
		return zero, false, nil
	}
	min := h.heap[0].value

	v, err := h.heap[0].src.Next()
	if err != nil {
		if errors.Is(err, iostream.ErrEndOfStream) {
			h.deleteRun(0)
		} else {
			return zero, false, err
		}
	} else {
		h.heap[0].value = v
	}

	if h.size > 0 {
		h.heapify(0)
	}
	return min, true, nil
}

// SliceSource adapts an in-memory slice, already sorted in key order, into
// a Source.
type SliceSource[T any] struct {
	data []T
	pos  int
}

// NewSliceSource wraps data as a Source.
func NewSliceSource[T any](data []T) *SliceSource[T] {
	return &SliceSource[T]{data: data}
}

// Next returns the next element of the slice, or iostream.ErrEndOfStream
// once exhausted.
func (s *SliceSource[T]) Next() (T, error) {
	var zero T
	if s.pos >= len(s.data) {
		return zero, iostream.ErrEndOfStream
	}
	v := s.data[s.pos]
	s.pos++
	return v, nil
}
