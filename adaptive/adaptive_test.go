package adaptive

import (
	"math/rand/v2"
	"sort"
	"testing"

	"iostream/config"
	"iostream/internal/vfs"
	"iostream/mm"
	"iostream/stream"
)

func i32Key(v int32) int32 { return v }
func i32Cmp(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
func i32Combine(a, b int32) int32 { return a + b }

// S7: insert C items (filling in-memory capacity exactly), then one more
// forces promotion; every pre-promotion item survives and the full
// extract_min sequence is globally sorted.
func TestAdaptivePQ_PromotionPreservesOrderAndCount(t *testing.T) {
	dir := t.TempDir()
	fsys := vfs.Default()
	acct := mm.New(nil)
	opts := config.Default()

	const C = 20
	a := New[int32, int32](C, false, fsys, dir, stream.Int32Codec{}, i32Key, i32Cmp, i32Combine, acct, opts)

	rng := rand.New(rand.NewPCG(7, 11))
	vals := make([]int32, C)
	for i := range vals {
		vals[i] = int32(rng.IntN(1000))
	}
	rng.Shuffle(len(vals), func(i, j int) { vals[i], vals[j] = vals[j], vals[i] })

	for _, v := range vals {
		if err := a.Insert(v); err != nil {
			t.Fatalf("Insert(%d): %v", v, err)
		}
	}
	if a.Regime() != INMEM {
		t.Fatalf("Regime() = %v before overflow insert, want INMEM", a.Regime())
	}

	overflow := int32(rng.IntN(1000))
	if err := a.Insert(overflow); err != nil {
		t.Fatalf("Insert(overflow %d): %v", overflow, err)
	}
	if a.Regime() != EXTMEM {
		t.Fatalf("Regime() = %v after overflow insert, want EXTMEM", a.Regime())
	}

	all := append(append([]int32(nil), vals...), overflow)
	want := append([]int32(nil), all...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })

	if a.Size() != len(want) {
		t.Fatalf("Size() = %d, want %d", a.Size(), len(want))
	}

	var got []int32
	for !a.IsEmpty() {
		v, ok, err := a.ExtractMin()
		if err != nil {
			t.Fatalf("ExtractMin: %v", err)
		}
		if !ok {
			t.Fatalf("ExtractMin: unexpectedly empty with Size()=%d", a.Size())
		}
		got = append(got, v)
	}
	if len(got) != len(want) {
		t.Fatalf("extracted %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, got[i], want[i])
		}
	}
}

// Debug regime mirrors every extraction against a shadow heap; mismatches
// would surface as an error from ExtractMin.
func TestAdaptivePQ_DebugRegimeMirrorsResults(t *testing.T) {
	dir := t.TempDir()
	fsys := vfs.Default()
	acct := mm.New(nil)
	opts := config.Default()

	const C = 10
	a := New[int32, int32](C, true, fsys, dir, stream.Int32Codec{}, i32Key, i32Cmp, i32Combine, acct, opts)

	for _, v := range []int32{5, 1, 9, 3, 7, 2, 8, 4, 6, 0, 42} {
		if err := a.Insert(v); err != nil {
			t.Fatalf("Insert(%d): %v", v, err)
		}
	}
	if a.Regime() != EXTMEMDebug {
		t.Fatalf("Regime() = %v, want EXTMEM_DEBUG", a.Regime())
	}

	prev := int32(-1)
	for !a.IsEmpty() {
		v, ok, err := a.ExtractMin()
		if err != nil {
			t.Fatalf("ExtractMin: %v", err)
		}
		if !ok {
			t.Fatalf("ExtractMin: unexpectedly empty")
		}
		if v < prev {
			t.Fatalf("out of order: got %d after %d", v, prev)
		}
		prev = v
	}
}

func TestAdaptivePQ_NoPromotionBelowCapacity(t *testing.T) {
	dir := t.TempDir()
	fsys := vfs.Default()
	acct := mm.New(nil)
	opts := config.Default()

	a := New[int32, int32](10, false, fsys, dir, stream.Int32Codec{}, i32Key, i32Cmp, i32Combine, acct, opts)
	for _, v := range []int32{3, 1, 2} {
		if err := a.Insert(v); err != nil {
			t.Fatalf("Insert(%d): %v", v, err)
		}
	}
	if a.Regime() != INMEM {
		t.Fatalf("Regime() = %v, want INMEM", a.Regime())
	}
	want := []int32{1, 2, 3}
	for _, w := range want {
		v, ok, err := a.ExtractMin()
		if err != nil || !ok {
			t.Fatalf("ExtractMin: v=%d ok=%v err=%v", v, ok, err)
		}
		if v != w {
			t.Fatalf("ExtractMin = %d, want %d", v, w)
		}
	}
}
