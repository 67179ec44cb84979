// Package buffer implements the in-memory record buffer (B0) used by the
// external sort's run-formation stage and the EM priority queue's in-memory
// component. It is grounded on the original library's im_buffer<T>: a fixed
// capacity array with a sorted flag, insertion, in-place quicksort, and
// shift/reset operations that slide a kept window to the front.
package buffer

import (
	"iostream/internal/sortutil"
)

// Buffer is a fixed-capacity in-memory array of records of type T.
type Buffer[T any] struct {
	data   []T
	size   int
	sorted bool
	cmp    sortutil.Comparator[T]
	cutoff int
}

// New creates a Buffer with the given capacity and comparator, using the
// default insertion-sort cutoff.
func New[T any](capacity int, cmp sortutil.Comparator[T]) *Buffer[T] {
	return NewWithCutoff(capacity, cmp, sortutil.DefaultCutoff)
}

// NewWithCutoff creates a Buffer with an explicit insertion-sort cutoff.
func NewWithCutoff[T any](capacity int, cmp sortutil.Comparator[T], cutoff int) *Buffer[T] {
	return &Buffer[T]{
		data:   make([]T, capacity),
		cmp:    cmp,
		cutoff: cutoff,
	}
}

// Capacity returns the maximum number of elements the buffer can hold.
func (b *Buffer[T]) Capacity() int { return len(b.data) }

// Len returns the current number of elements.
func (b *Buffer[T]) Len() int { return b.size }

// Full reports whether the buffer has reached capacity.
func (b *Buffer[T]) Full() bool { return b.size == len(b.data) }

// Empty reports whether the buffer holds no elements.
func (b *Buffer[T]) Empty() bool { return b.size == 0 }

// Sorted reports whether the buffer is known to be sorted. Insert and
// InsertArray clear this flag.
func (b *Buffer[T]) Sorted() bool { return b.sorted }

// Data returns the live slice of occupied elements, in current order. The
// caller must not retain it across further mutating calls.
func (b *Buffer[T]) Data() []T { return b.data[:b.size] }

// Insert appends a single element. Returns false if the buffer is full.
func (b *Buffer[T]) Insert(t T) bool {
	if b.Full() {
		return false
	}
	b.data[b.size] = t
	b.size++
	b.sorted = false
	return true
}

// InsertArray appends as many elements of arr as fit, returning the number
// actually inserted.
func (b *Buffer[T]) InsertArray(arr []T) int {
	n := copy(b.data[b.size:], arr)
	b.size += n
	if n > 0 {
		b.sorted = false
	}
	return n
}

// Sort sorts the occupied region in place. It is a no-op if the buffer is
// already known sorted, mirroring the original library's behaviour.
func (b *Buffer[T]) Sort() {
	if b.sorted {
		return
	}
	sortutil.Sort(b.data, b.size, b.cmp, b.cutoff)
	b.sorted = true
}

// ShiftLeft drops the first n elements, sliding the remainder to the front.
// The EM priority queue uses it to drop the B0 records it has just moved
// into its in-memory PQ.
func (b *Buffer[T]) ShiftLeft(n int) {
	if n <= 0 {
		return
	}
	if n >= b.size {
		b.size = 0
		return
	}
	copy(b.data, b.data[n:b.size])
	b.size -= n
}

// Reset keeps the n elements starting at start, discarding everything else
// and sliding the kept window to index 0. It does not alter the sorted flag
// since a contiguous sub-window of a sorted buffer is itself sorted.
func (b *Buffer[T]) Reset(start, n int) {
	if n <= 0 {
		b.size = 0
		return
	}
	copy(b.data, b.data[start:start+n])
	b.size = n
}

// Clear empties the buffer without releasing its backing array.
func (b *Buffer[T]) Clear() {
	b.size = 0
	b.sorted = true
}
