// Package sortutil implements the in-place comparator-driven quicksort used
// to sort in-memory runs and buffers: a randomly-pivoted Hoare partition with
// a cutoff below which insertion sort is used.
package sortutil

import "math/rand/v2"

// Comparator returns a signed tri-state: negative if a < b, zero if equal,
// positive if a > b.
type Comparator[T any] func(a, b T) int

// DefaultCutoff is the insertion-sort cutoff below which quicksort recursion
// stops, matching the original library's constant.
const DefaultCutoff = 20

// Sort sorts data in place using data[:n] as the active range, recursing
// with quicksort above cutoff items and falling back to insertion sort below
// it.
func Sort[T any](data []T, n int, cmp Comparator[T], cutoff int) {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	quicksort(data[:n], cmp, cutoff)
}

func quicksort[T any](data []T, cmp Comparator[T], cutoff int) {
	n := len(data)
	if n <= 1 {
		return
	}
	if n < cutoff {
		insertionSort(data, cmp)
		return
	}
	p := partition(data, cmp)
	quicksort(data[:p+1], cmp, cutoff)
	quicksort(data[p+1:], cmp, cutoff)
}



// InsertionSort sorts data in place via insertion sort.
func InsertionSort[T any](data []T, cmp Comparator[T]) {
	insertionSort(data, cmp)
}

func insertionSort[T any](data []T, cmp Comparator[T]) {
	for i := 1; i < len(data); i++ {
		v := data[i]
		j := i - 1
		for j >= 0 && cmp(data[j], v) > 0 {
			data[j+1] = data[j]
			j--
		}
		data[j+1] = v
	}
}

// partition picks a random pivot, swaps it to the front, and performs a
// Hoare partition, returning an index j such that data[:j+1] and data[j+1:]
// can each be recursed on independently.
func partition[T any](data []T, cmp Comparator[T]) int {
	n := len(data)
	pivotIdx := rand.IntN(n)
	data[0], data[pivotIdx] = data[pivotIdx], data[0]
	pivot := data[0]

	i, j := 0, n
	for {
		for {
			i++
			if i >= n || cmp(data[i], pivot) >= 0 {
				break
			}
		}
		for {
			j--
			if cmp(data[j], pivot) <= 0 {
				break
			}
		}
		if i >= j {
			return j
		}
		data[i], data[j] = data[j], data[i]
	}
}
