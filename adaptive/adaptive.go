// Package adaptive implements the adaptive EM-PQ wrapper (§4.8): a
// structure that starts as a bare in-memory min-max heap and promotes to a
// full external-memory priority queue (package empq) the moment its
// in-memory capacity would be exceeded.
//
// No dedicated adaptive-heap header (an "empq_adaptive.h") accompanies
// empq.h in this corpus. Promotion is grounded on empq.h's own
// SAVE_MEMORY-guarded constructor, em_pqueue(MinMaxHeap<T> *im,
// AMI_STREAM<T> *amis) — the source's own hook for seeding an EM-PQ from an
// existing in-memory heap — together with SPEC_FULL.md §4.8's prose.
package adaptive

import (
	"cmp"

	"iostream"
	"iostream/config"
	"iostream/empq"
	"iostream/internal/heap"
	"iostream/internal/logging"
	"iostream/internal/sortutil"
	"iostream/internal/vfs"
	"iostream/mm"
	"iostream/stream"
)

// Keyer extracts the ordering key from a record.
type Keyer[T any, K cmp.Ordered] func(T) K

// Combiner merges two records carrying the same key.
type Combiner[T any] func(a, b T) T

// Regime names which of the three implementation modes currently backs an
// AdaptivePQ.
type Regime int

const (
	INMEM Regime = iota
	EXTMEM
	EXTMEMDebug
)

func (r Regime) String() string {
	switch r {
	case INMEM:
		return "INMEM"
	case EXTMEM:
		return "EXTMEM"
	case EXTMEMDebug:
		return "EXTMEM_DEBUG"
	default:
		return "UNKNOWN"
	}
}

// defaultMaxLevels bounds the promoted EM-PQ's external buffer levels.
const defaultMaxLevels = 8

// AdaptivePQ is the adaptive EM-PQ: an in-memory min-max heap up to
// capacity, then a full empq.EMPQ beyond it.
type AdaptivePQ[T any, K cmp.Ordered] struct {
	promoted bool
	debug    bool

	mmh    *heap.Unbounded[T, K]
	pq     *empq.EMPQ[T, K]
	shadow *heap.Unbounded[T, K]

	capacity int
	key      Keyer[T, K]
	compare  sortutil.Comparator[T]
	combine  Combiner[T]

	fsys   vfs.FS
	tmpDir string
	codec  stream.Codec[T]
	acct   *mm.Accountant
	opts   config.Options

	size int
}

// New creates an AdaptivePQ starting in the INMEM regime, sized to hold up
// to capacity items before promoting to an external-memory EM-PQ whose
// internal PQ capacity is capacity/2. If debug is set, every operation also
// runs against a shadow unbounded heap and the two results are asserted
// equal (the EXTMEM_DEBUG regime).
func New[T any, K cmp.Ordered](
	capacity int, debug bool,
	fsys vfs.FS, tmpDir string, codec stream.Codec[T],
	key Keyer[T, K], compare sortutil.Comparator[T], combine Combiner[T],
	acct *mm.Accountant, opts config.Options,
) *AdaptivePQ[T, K] {
	if capacity < 2 {
		capacity = 2
	}
	a := &AdaptivePQ[T, K]{
		debug:    debug,
		mmh:      heap.NewUnboundedSize[T, K](capacity, heap.Keyer[T, K](key), heap.Combiner[T](combine)),
		capacity: capacity,
		key:      key,
		compare:  compare,
		combine:  combine,
		fsys:     fsys,
		tmpDir:   tmpDir,
		codec:    codec,
		acct:     acct,
		opts:     opts,
	}
	if debug {
		a.shadow = heap.NewUnboundedSize[T, K](capacity, heap.Keyer[T, K](key), heap.Combiner[T](combine))
	}
	return a
}

// Regime reports which implementation mode currently backs the structure.
func (a *AdaptivePQ[T, K]) Regime() Regime {
	if !a.promoted {
		return INMEM
	}
	if a.debug {
		return EXTMEMDebug
	}
	return EXTMEM
}

// Size returns the net number of items held.
func (a *AdaptivePQ[T, K]) Size() int { return a.size }

// IsEmpty reports whether the structure holds no items.
func (a *AdaptivePQ[T, K]) IsEmpty() bool { return a.size == 0 }

// Insert adds x, promoting to the external-memory regime first if the
// in-memory heap is already at capacity.
func (a *AdaptivePQ[T, K]) Insert(x T) error {
	if !a.promoted && a.mmh.Len() >= a.capacity {
		if err := a.promote(); err != nil {
			return err
		}
	}
	if a.promoted {
		if err := a.pq.Insert(x); err != nil {
			return err
		}
	} else {
		a.mmh.Insert(x)
	}
	a.size++
	if a.debug {
		a.shadow.Insert(x)
	}
	return nil
}

// promote transitions from the in-memory heap to a full EM-PQ: the upper
// half of the heap (by key) is sorted ascending into an anonymous stream,
// the lower half seeds the new EM-PQ's internal PQ, and the stream becomes
// the new EM-PQ's sole B[1] sub-stream (§4.8 steps 1-4).
func (a *AdaptivePQ[T, K]) promote() error {
	p := a.capacity / 2
	if p < 1 {
		p = 1
	}

	descAll := a.mmh.ExtractAllSortedDesc() // capacity items, max first
	n := len(descAll)
	lowerCount := p
	if lowerCount > n {
		lowerCount = n
	}
	upperCount := n - lowerCount
	upperDesc := descAll[:upperCount]
	lower := append([]T(nil), descAll[upperCount:]...)

	var upperStream *stream.Stream[T]
	if len(upperDesc) > 0 {
		ascUpper := make([]T, len(upperDesc))
		for i, v := range upperDesc {
			ascUpper[len(upperDesc)-1-i] = v
		}
		s, err := stream.OpenAnonymousSize[T](a.fsys, a.tmpDir, a.codec, a.acct, a.opts.StreamBufferSize)
		if err != nil {
			return err
		}
		if _, err := s.WriteArray(ascUpper); err != nil {
			return err
		}
		s.Persist(stream.Persistent)
		if err := s.Seek(0); err != nil {
			return err
		}
		upperStream = s
	}

	q := empq.NewWithCapacities[T, K](
		a.fsys, a.tmpDir, a.codec,
		empq.Keyer[T, K](a.key), a.compare, empq.Combiner[T](a.combine),
		a.acct, a.opts, p, p, 2, defaultMaxLevels,
	)
	if err := q.SeedFromPromotion(lower, upperStream); err != nil {
		return err
	}

	a.pq = q
	a.mmh = nil
	a.promoted = true
	return nil
}

// Min returns the current minimum without removing it.
func (a *AdaptivePQ[T, K]) Min() (T, bool, error) {
	if a.promoted {
		return a.pq.Min()
	}
	v, ok := a.mmh.Min()
	return v, ok, nil
}

// ExtractMin removes and returns the current minimum. In the debug regime
// the same extraction is mirrored against the shadow heap and the two
// results are asserted equal.
func (a *AdaptivePQ[T, K]) ExtractMin() (T, bool, error) {
	var v T
	var ok bool
	var err error
	if a.promoted {
		v, ok, err = a.pq.ExtractMin()
	} else {
		v, ok = a.mmh.ExtractMin()
	}
	if err != nil {
		return v, ok, err
	}
	if ok {
		a.size--
	}
	if a.debug && ok {
		sv, sok := a.shadow.ExtractMin()
		if !sok || a.key(sv) != a.key(v) {
			if a.acct != nil {
				log := a.acct.Logger()
				if !logging.IsNil(log) {
					log.Fatalf("%sExtractMin: debug shadow heap mismatch", logging.NSAdaptive)
				}
			}
			return v, ok, iostream.NewError("adaptive.ExtractMin", "", iostream.ObjectInitialization)
		}
	}
	return v, ok, nil
}

// ExtractAllMin repeatedly extracts the minimum while its key matches the
// first extracted key, combining values via Combiner.
func (a *AdaptivePQ[T, K]) ExtractAllMin() (T, bool, error) {
	first, ok, err := a.ExtractMin()
	if err != nil || !ok {
		return first, ok, err
	}
	result := first
	for {
		nv, ok2, err2 := a.Min()
		if err2 != nil {
			return result, true, err2
		}
		if !ok2 || a.key(nv) != a.key(first) {
			break
		}
		v2, _, err3 := a.ExtractMin()
		if err3 != nil {
			return result, true, err3
		}
		result = a.combine(result, v2)
	}
	return result, true, nil
}
