// Package empq implements the external-memory priority queue: an in-memory
// PQ (min-max heap) and in-memory buffer B0 backed by a cascade of
// external-memory buffer levels B[1..max_levels], each holding up to `arity`
// sorted sub-streams.
//
// Grounded on empq.h's declared structure (pq/pqsize, buff_0/bufsize,
// buff/max_nbuf/crt_buf/buf_arity) and on the spec's prose description of
// insert/empty_buff_0/empty_buff/fillpq, since no empq_impl.h accompanies
// empq.h in this corpus. The cross-level merge step inside fillpq (spec:
// merge each level's p smallest into a per-level temporary stream, then
// merge those temporary streams into one global minstream before co-merging
// with B0) is collapsed here into a single in-memory selection over each
// level's p-smallest candidates plus B0's candidates: each level still
// contributes at most p tagged items, so the asymptotic I/O shape is
// unchanged, but the intermediate minstream is never written to disk. This
// is a deliberate simplification, not a behavioural difference.
package empq

import (
	"cmp"
	"sort"

	"iostream"
	"iostream/config"
	"iostream/internal/buffer"
	"iostream/internal/embuffer"
	"iostream/internal/heap"
	"iostream/internal/logging"
	"iostream/internal/merge"
	"iostream/internal/sortutil"
	"iostream/internal/vfs"
	"iostream/mm"
	"iostream/stream"
)

// Keyer extracts the ordering key from a record.
type Keyer[T any, K cmp.Ordered] func(T) K

// Combiner merges two records carrying the same key, used by ExtractAllMin.
type Combiner[T any] func(a, b T) T

// defaultMaxLevels bounds how many external buffer levels a self-sized
// EM-PQ will grow to before reporting INSUFFICIENT_MAIN_MEMORY.
const defaultMaxLevels = 8

// EMPQ is the external-memory priority queue.
type EMPQ[T any, K cmp.Ordered] struct {
	pq     *heap.Bounded[T, K]
	b0     *buffer.Buffer[T]
	levels []*embuffer.Buffer[T]

	arity     int
	maxLevels int

	fsys    vfs.FS
	tmpDir  string
	codec   stream.Codec[T]
	key     Keyer[T, K]
	compare sortutil.Comparator[T]
	combine Combiner[T]

	acct       *mm.Accountant
	opts       config.Options
	saveMemory bool

	size int
}

// New creates a self-sized EMPQ, deriving PQ/B0 capacity and merge arity
// from the accountant's currently available memory (§4.7 Sizing).
func New[T any, K cmp.Ordered](
	fsys vfs.FS, tmpDir string, codec stream.Codec[T],
	key Keyer[T, K], compare sortutil.Comparator[T], combine Combiner[T],
	acct *mm.Accountant, opts config.Options,
) *EMPQ[T, K] {
	p, b, a := sizeParams(acct, codec.Size(), int64(2*opts.StreamBufferSize), opts.MaxStreamsOpen, opts.SaveMemory)
	return NewWithCapacities(fsys, tmpDir, codec, key, compare, combine, acct, opts, p, b, a, defaultMaxLevels)
}

// NewWithCapacities creates an EMPQ with explicit PQ capacity p, B0
// capacity b, per-level arity, and a maximum number of external levels.
func NewWithCapacities[T any, K cmp.Ordered](
	fsys vfs.FS, tmpDir string, codec stream.Codec[T],
	key Keyer[T, K], compare sortutil.Comparator[T], combine Combiner[T],
	acct *mm.Accountant, opts config.Options,
	p, b, arity, maxLevels int,
) *EMPQ[T, K] {
	if arity < 2 {
		arity = 2
	}
	if maxLevels < 1 {
		maxLevels = defaultMaxLevels
	}
	return &EMPQ[T, K]{
		pq:         heap.NewBounded[T, K](p, heap.Keyer[T, K](key), heap.Combiner[T](combine)),
		b0:         buffer.NewWithCutoff[T](b, compare, opts.InsertionSortCutoff),
		levels:     make([]*embuffer.Buffer[T], 0, maxLevels),
		arity:      arity,
		maxLevels:  maxLevels,
		fsys:       fsys,
		tmpDir:     tmpDir,
		codec:      codec,
		key:        key,
		compare:    compare,
		combine:    combine,
		acct:       acct,
		opts:       opts,
		saveMemory: opts.SaveMemory,
	}
}

// sizeParams derives (pq capacity, b0 capacity, arity) from available
// memory M and per-stream overhead s, following §4.7's sizing formula. If
// the arity the formula derives has to be clamped — up to the hardcoded
// floor of 3 because memory is scarce, or down to max_streams_open because
// the caller's cap is tighter still — this reports a warning and proceeds
// rather than failing construction (§4.6/§7: the engine proceeds under
// memory/stream-count pressure rather than aborting). After the overhead pad,
// PQ and B0 each get a quarter of the remaining memory, or half each when
// saveMemory is set.
func sizeParams(acct *mm.Accountant, itemSize int, streamOverhead int64, maxStreamsOpen int, saveMemory bool) (p, b, a int) {
	if itemSize <= 0 {
		itemSize = 1
	}
	if streamOverhead <= 0 {
		streamOverhead = 1
	}
	m := int64(0)
	if acct != nil {
		m = acct.MemoryAvailable()
	}
	if m <= 0 {
		m = int64(itemSize) * 256
	}

	a = int(m / (2 * int64(defaultMaxLevels) * streamOverhead))
	if a < 3 {
		a = 3
		if acct != nil {
			acct.WarnOnce("empq.sizeParams.insufficientMainMemory",
				"%ssizeParams: arity clamped to floor 3 (%s)",
				logging.NSEMPQ, iostream.InsufficientMainMemory)
		}
	}
	if maxStreamsOpen > 0 && a > maxStreamsOpen {
		a = maxStreamsOpen
		if acct != nil {
			acct.WarnOnce("empq.sizeParams.insufficientAvailableStreams",
				"%ssizeParams: arity clamped to max_streams_open=%d (%s)",
				logging.NSEMPQ, maxStreamsOpen, iostream.InsufficientAvailableStreams)
		}
	}

	overheadPad := int64(a) * streamOverhead * int64(defaultMaxLevels)
	rem := m - overheadPad
	if rem < int64(2*itemSize) {
		rem = m / 2
	}
	share := rem / 4
	if saveMemory {
		share = rem / 2
	}
	p = int(share / int64(itemSize))
	b = int(share / int64(itemSize))
	if p < 1 {
		p = 1
	}
	if b < 1 {
		b = 1
	}
	return p, b, a
}

// Size returns the net number of items currently held (inserted − extracted).
func (q *EMPQ[T, K]) Size() int { return q.size }

// IsEmpty reports whether the structure holds no items.
func (q *EMPQ[T, K]) IsEmpty() bool { return q.size == 0 }

// Maxlen returns an estimate of the structure's total capacity across the
// PQ, B0, and every possible external level.
func (q *EMPQ[T, K]) Maxlen() int {
	n := q.pq.Capacity() + q.b0.Capacity()
	levelCap := q.arity
	for i := 0; i < q.maxLevels; i++ {
		n += levelCap * q.b0.Capacity()
		levelCap *= q.arity
	}
	return n
}

// Insert adds x to the structure (§4.7 Insert).
func (q *EMPQ[T, K]) Insert(x T) error {
	cascade, inPQ := q.insertIntoPQ(x)
	if inPQ {
		q.size++
		return nil
	}
	if q.b0.Full() {
		if err := q.emptyBuff0(); err != nil {
			return err
		}
	}
	q.b0.Insert(cascade)
	q.size++
	return nil
}

// insertIntoPQ attempts to place x directly into the PQ, returning the item
// that must cascade to B0 instead (either x itself, or the PQ's evicted old
// maximum) and whether x itself ended up in the PQ. An empty PQ takes x
// directly only when the whole structure is empty; otherwise x cascades to
// B0 and the next Min/ExtractMin refills the PQ.
func (q *EMPQ[T, K]) insertIntoPQ(x T) (T, bool) {
	if q.pq.Empty() {
		if q.size == 0 && q.pq.Insert(x) {
			return x, true
		}
		return x, false
	}
	maxv, _ := q.pq.Max()
	if q.key(x) <= q.key(maxv) {
		if !q.pq.Full() {
			q.pq.Insert(x)
			return x, true
		}
		oldMax, _ := q.pq.ExtractMax()
		q.pq.Insert(x)
		return oldMax, false
	}
	return x, false
}

// emptyBuff0 sorts B0, cascades B[1] upward if it is full, writes B0's
// sorted contents as a new sub-stream of B[1], and resets B0.
func (q *EMPQ[T, K]) emptyBuff0() error {
	q.b0.Sort()
	if err := q.ensureLevel(0); err != nil {
		return err
	}
	if q.levels[0].Full() {
		if err := q.emptyLevel(0); err != nil {
			return err
		}
	}
	s, err := stream.OpenAnonymousSize[T](q.fsys, q.tmpDir, q.codec, q.acct, q.opts.StreamBufferSize)
	if err != nil {
		return err
	}
	if _, err := s.WriteArray(q.b0.Data()); err != nil {
		return err
	}
	s.Persist(stream.Persistent)
	if err := s.Seek(0); err != nil {
		return err
	}
	if err := q.levels[0].AddStream(s); err != nil {
		return err
	}
	q.b0.Clear()
	return nil
}

// emptyLevel merges all of level i's sub-streams into one sorted stream,
// resets level i, and inserts the merged stream into level i+1, cascading
// further if that level is also full.
func (q *EMPQ[T, K]) emptyLevel(i int) error {
	lvl := q.levels[i]
	slots := lvl.Slots()

	opened := make([]*stream.Stream[T], 0, len(slots))
	sources := make([]merge.Source[T], 0, len(slots))
	for j := range slots {
		s, err := lvl.Open(j)
		if err != nil {
			return err
		}
		if err := s.Seek(slots[j].Deleted()); err != nil {
			return err
		}
		opened = append(opened, s)
		sources = append(sources, &plainSource[T]{s: s})
	}

	h, err := merge.New[T, K](sources, q.key)
	if err != nil {
		return err
	}
	out, err := stream.OpenAnonymousSize[T](q.fsys, q.tmpDir, q.codec, q.acct, q.opts.StreamBufferSize)
	if err != nil {
		return err
	}
	for {
		v, ok, err := h.ExtractMin()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := out.WriteItem(v); err != nil {
			return err
		}
	}
	for _, s := range opened {
		s.Persist(stream.Delete)
		if err := s.Close(); err != nil {
			return err
		}
	}
	out.Persist(stream.Persistent)
	if err := out.Seek(0); err != nil {
		return err
	}

	lvl.Clear()
	if err := q.ensureLevel(i + 1); err != nil {
		return err
	}
	if q.levels[i+1].Full() {
		if err := q.emptyLevel(i + 1); err != nil {
			return err
		}
	}
	return q.levels[i+1].AddStream(out)
}

func (q *EMPQ[T, K]) ensureLevel(i int) error {
	for len(q.levels) <= i {
		if len(q.levels) >= q.maxLevels {
			if q.acct != nil {
				log := q.acct.Logger()
				if !logging.IsNil(log) {
					log.Fatalf("%sensureLevel: exceeded max_levels=%d", logging.NSEMPQ, q.maxLevels)
				}
			}
			return iostream.NewError("empq.ensureLevel", "", iostream.InsufficientMainMemory)
		}
		q.levels = append(q.levels, embuffer.New[T](q.arity, q.fsys, q.codec, q.acct, q.saveMemory))
	}
	return nil
}

func (q *EMPQ[T, K]) anyActiveLevels() bool {
	for _, lvl := range q.levels {
		if lvl != nil && lvl.NBStreams() > 0 {
			return true
		}
	}
	return false
}

// SeedFromPromotion initializes an otherwise-empty EMPQ directly from an
// adaptive-promotion split: pqItems bulk-load the internal PQ (any excess
// beyond its capacity is dropped by Fill, matching the caller's contract
// that pqItems already fits), and upperStream — already sorted ascending
// and rewound to 0 — becomes B[1]'s sole sub-stream verbatim. Mirrors
// empq.h's SAVE_MEMORY constructor em_pqueue(MinMaxHeap<T>*, AMI_STREAM<T>*).
func (q *EMPQ[T, K]) SeedFromPromotion(pqItems []T, upperStream *stream.Stream[T]) error {
	q.pq.Fill(pqItems)
	q.size += len(pqItems)
	if upperStream != nil && upperStream.Length() > 0 {
		if err := q.ensureLevel(0); err != nil {
			return err
		}
		if err := q.levels[0].AddStream(upperStream); err != nil {
			return err
		}
		q.size += int(upperStream.Length())
	}
	return nil
}

// Min returns the current minimum without removing it, refilling the PQ
// first if necessary.
func (q *EMPQ[T, K]) Min() (T, bool, error) {
	if err := q.refill(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := q.pq.Min()
	return v, ok, nil
}

// ExtractMin removes and returns the current minimum, refilling the PQ
// first if necessary.
func (q *EMPQ[T, K]) ExtractMin() (T, bool, error) {
	if err := q.refill(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := q.pq.ExtractMin()
	if ok {
		q.size--
	}
	return v, ok, nil
}

// ExtractAllMin repeatedly extracts the minimum while its key matches the
// first extracted key, combining values via Combiner.
func (q *EMPQ[T, K]) ExtractAllMin() (T, bool, error) {
	first, ok, err := q.ExtractMin()
	if err != nil || !ok {
		return first, ok, err
	}
	result := first
	for {
		nv, ok2, err2 := q.Min()
		if err2 != nil {
			return result, true, err2
		}
		if !ok2 || q.key(nv) != q.key(first) {
			break
		}
		v2, _, err3 := q.ExtractMin()
		if err3 != nil {
			return result, true, err3
		}
		result = q.combine(result, v2)
	}
	return result, true, nil
}

// refill repopulates the PQ when it is empty but other data remains, either
// directly from B0 (the no-external-levels fast path) or via fillPQ.
func (q *EMPQ[T, K]) refill() error {
	if q.pq.Len() > 0 {
		return nil
	}
	if q.b0.Empty() && !q.anyActiveLevels() {
		return nil
	}
	if !q.anyActiveLevels() {
		q.b0.Sort()
		data := q.b0.Data()
		notFit := q.pq.Fill(data)
		inserted := len(data) - notFit
		q.b0.ShiftLeft(inserted)
		return nil
	}
	return q.fillPQ()
}

// plainSource adapts a *stream.Stream[T] to merge.Source[T].
type plainSource[T any] struct {
	s *stream.Stream[T]
}

func (ps *plainSource[T]) Next() (T, error) { return ps.s.ReadItem() }

type tagged[T any] struct {
	value       T
	level, slot int
	fromB0      bool
}

type taggedSource[T any] struct {
	s           *stream.Stream[T]
	level, slot int
}

func (ts *taggedSource[T]) Next() (tagged[T], error) {
	v, err := ts.s.ReadItem()
	if err != nil {
		return tagged[T]{}, err
	}
	return tagged[T]{value: v, level: ts.level, slot: ts.slot}, nil
}

// fillPQ implements §4.7's fillpq: merge each active level's p smallest
// tagged items and B0's p smallest items into one candidate set, select the
// globally smallest p, insert them into the PQ, mark their origin slots'
// deleted counts (or shrink B0), and compact exhausted sub-streams.
func (q *EMPQ[T, K]) fillPQ() error {
	p := q.pq.Capacity()
	if p == 0 {
		return nil
	}

	var candidates []tagged[T]

	for li, lvl := range q.levels {
		if lvl == nil || lvl.NBStreams() == 0 {
			continue
		}
		slots := lvl.Slots()
		sources := make([]merge.Source[tagged[T]], 0, len(slots))
		for j := range slots {
			s, err := lvl.Open(j)
			if err != nil {
				return err
			}
			if err := s.Seek(slots[j].Deleted()); err != nil {
				return err
			}
			sources = append(sources, &taggedSource[T]{s: s, level: li, slot: j})
		}
		h, err := merge.New[tagged[T], K](sources, func(t tagged[T]) K { return q.key(t.value) })
		if err != nil {
			return err
		}
		for n := 0; n < p; n++ {
			t, ok, err := h.ExtractMin()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			candidates = append(candidates, t)
		}
	}

	q.b0.Sort()
	b0Data := q.b0.Data()
	n0 := len(b0Data)
	if n0 > p {
		n0 = p
	}
	for i := 0; i < n0; i++ {
		candidates = append(candidates, tagged[T]{value: b0Data[i], fromB0: true})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return q.key(candidates[i].value) < q.key(candidates[j].value)
	})
	if len(candidates) > p {
		candidates = candidates[:p]
	}

	b0Consumed := 0
	for _, c := range candidates {
		if !q.pq.Insert(c.value) {
			break
		}
		if c.fromB0 {
			b0Consumed++
		} else {
			q.levels[c.level].MarkDeleted(c.slot, 1)
		}
	}
	if b0Consumed > 0 {
		q.b0.ShiftLeft(b0Consumed)
	}

	return q.cleanupLevels()
}

func (q *EMPQ[T, K]) cleanupLevels() error {
	for _, lvl := range q.levels {
		if lvl == nil {
			continue
		}
		if err := lvl.Compact(); err != nil {
			return err
		}
	}
	for len(q.levels) > 0 && q.levels[len(q.levels)-1].NBStreams() == 0 {
		q.levels = q.levels[:len(q.levels)-1]
	}
	return nil
}

// Clear empties the structure, deleting every external sub-stream.
func (q *EMPQ[T, K]) Clear() error {
	q.pq.Clear()
	q.b0.Clear()
	for _, lvl := range q.levels {
		if lvl == nil {
			continue
		}
		for j := 0; j < lvl.NBStreams(); j++ {
			s, err := lvl.Open(j)
			if err != nil {
				return err
			}
			s.Persist(stream.Delete)
			if err := s.Close(); err != nil {
				return err
			}
		}
		lvl.Clear()
	}
	q.levels = q.levels[:0]
	q.size = 0
	return nil
}
