package merge

import "testing"

func identity(v int) int { return v }

func TestHeap_MergesSortedSources(t *testing.T) {
	sources := []Source[int]{
		NewSliceSource([]int{1, 4, 7, 10}),
		NewSliceSource([]int{2, 3, 9}),
		NewSliceSource([]int{5, 6, 8, 11, 12}),
	}
	h, err := New[int, int](sources, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	for i, w := range want {
		got, ok, err := h.ExtractMin()
		if err != nil {
			t.Fatalf("ExtractMin #%d: %v", i, err)
		}
		if !ok || got != w {
			t.Fatalf("ExtractMin #%d = %d, %v; want %d", i, got, ok, w)
		}
	}
	if !h.Empty() {
		t.Fatalf("expected heap empty after draining all sources")
	}
	_, ok, err := h.ExtractMin()
	if err != nil || ok {
		t.Fatalf("ExtractMin on empty heap = %v, %v, want false, nil", ok, err)
	}
}

func TestHeap_SkipsEmptySourcesAtInit(t *testing.T) {
	sources := []Source[int]{
		NewSliceSource([]int{}),
		NewSliceSource([]int{1, 2, 3}),
		NewSliceSource([]int{}),
	}
	h, err := New[int, int](sources, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []int{1, 2, 3}
	for i, w := range want {
		got, ok, err := h.ExtractMin()
		if err != nil || !ok || got != w {
			t.Fatalf("ExtractMin #%d = %d, %v, %v; want %d", i, got, ok, err, w)
		}
	}
}

func TestHeap_AllSourcesEmpty(t *testing.T) {
	sources := []Source[int]{NewSliceSource([]int{}), NewSliceSource([]int{})}
	h, err := New[int, int](sources, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !h.Empty() {
		t.Fatalf("expected empty heap when all sources are empty")
	}
}

func TestHeap_SingleSource(t *testing.T) {
	sources := []Source[int]{NewSliceSource([]int{5, 10, 15})}
	h, err := New[int, int](sources, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []int{5, 10, 15}
	for i, w := range want {
		got, ok, _ := h.ExtractMin()
		if !ok || got != w {
			t.Fatalf("ExtractMin #%d = %d, %v; want %d", i, got, ok, w)
		}
	}
}

func TestHeap_ManySourcesWithDuplicates(t *testing.T) {
	sources := []Source[int]{
		NewSliceSource([]int{1, 1, 2, 5}),
		NewSliceSource([]int{1, 3, 5}),
		NewSliceSource([]int{0, 0, 4}),
	}
	h, err := New[int, int](sources, identity)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := []int{0, 0, 1, 1, 1, 2, 3, 4, 5, 5}
	for i, w := range want {
		got, ok, err := h.ExtractMin()
		if err != nil || !ok || got != w {
			t.Fatalf("ExtractMin #%d = %d, %v, %v; want %d", i, got, ok, err, w)
		}
	}
}
