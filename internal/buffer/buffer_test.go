package buffer

import (
	"sort"
	"testing"
)

func intCmp(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func TestBuffer_InsertAndFull(t *testing.T) {
	b := New[int](3, intCmp)
	if !b.Insert(1) || !b.Insert(2) || !b.Insert(3) {
		t.Fatalf("expected inserts to succeed up to capacity")
	}
	if !b.Full() {
		t.Fatalf("expected buffer full")
	}
	if b.Insert(4) {
		t.Fatalf("expected insert to fail when full")
	}
}

func TestBuffer_InsertArrayPartialFit(t *testing.T) {
	b := New[int](5, intCmp)
	n := b.InsertArray([]int{1, 2, 3, 4, 5, 6, 7})
	if n != 5 {
		t.Fatalf("InsertArray returned %d, want 5", n)
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
}

func TestBuffer_Sort(t *testing.T) {
	b := New[int](6, intCmp)
	for _, v := range []int{5, 3, 8, 1, 9, 2} {
		b.Insert(v)
	}
	b.Sort()
	want := []int{1, 2, 3, 5, 8, 9}
	got := b.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", got, want)
		}
	}
	if !b.Sorted() {
		t.Fatalf("expected Sorted() true after Sort")
	}
}

func TestBuffer_SortNoOpWhenAlreadySorted(t *testing.T) {
	b := New[int](4, intCmp)
	b.Insert(1)
	b.Insert(2)
	b.Sort()
	if !b.Sorted() {
		t.Fatalf("expected sorted")
	}
	// A second Sort should be a no-op and not touch the data.
	b.Sort()
	want := []int{1, 2}
	got := b.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", got, want)
		}
	}
}

func TestBuffer_InsertClearsSortedFlag(t *testing.T) {
	b := New[int](4, intCmp)
	b.Insert(2)
	b.Insert(1)
	b.Sort()
	if !b.Sorted() {
		t.Fatalf("expected sorted after Sort")
	}
	b.Insert(0)
	if b.Sorted() {
		t.Fatalf("expected Insert to clear sorted flag")
	}
}

func TestBuffer_ShiftLeft(t *testing.T) {
	b := New[int](5, intCmp)
	for _, v := range []int{1, 2, 3, 4, 5} {
		b.Insert(v)
	}
	b.ShiftLeft(2)
	want := []int{3, 4, 5}
	got := b.Data()
	if len(got) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", got, want)
		}
	}
}

func TestBuffer_ShiftLeftEntireBuffer(t *testing.T) {
	b := New[int](3, intCmp)
	b.Insert(1)
	b.Insert(2)
	b.ShiftLeft(10)
	if !b.Empty() {
		t.Fatalf("expected empty buffer after shifting past size")
	}
}

func TestBuffer_Reset(t *testing.T) {
	b := New[int](5, intCmp)
	for _, v := range []int{10, 20, 30, 40, 50} {
		b.Insert(v)
	}
	b.Reset(1, 3)
	want := []int{20, 30, 40}
	got := b.Data()
	if len(got) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", got, want)
		}
	}
}

func TestBuffer_Clear(t *testing.T) {
	b := New[int](4, intCmp)
	b.Insert(1)
	b.Insert(2)
	b.Clear()
	if !b.Empty() {
		t.Fatalf("expected empty after Clear")
	}
	if !b.Sorted() {
		t.Fatalf("expected Sorted() true on an empty buffer")
	}
}

func TestBuffer_SortLargeRandom(t *testing.T) {
	b := New[int](500, intCmp)
	vals := make([]int, 500)
	for i := range vals {
		vals[i] = (i * 7919) % 1009
		b.Insert(vals[i])
	}
	b.Sort()
	want := append([]int(nil), vals...)
	sort.Ints(want)
	got := b.Data()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}
