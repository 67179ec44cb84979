// Package extsort implements the external merge sort: run formation
// followed by a cascaded k-way merge, producing a new sorted stream of
// identical length and record type as the input.
//
// Grounded on ami_sort_impl.h: initializeRunFormation sizes runs from
// available memory, makeRun sorts each run in place before flushing it to
// an anonymous stream, and singleMerge/multiMerge repeatedly merge the
// front of the run-name queue until one stream remains. The original's
// block-wise in-run merge optimization (makeRun_Block, cache-blocked via
// ReplacementHeapBlock) is not reproduced: a single in-memory quicksort
// over the whole run buffer is simpler and produces an identical sorted
// run, at the cost of that one cache-locality optimization.
package extsort

import (
	"cmp"
	"errors"

	"iostream"
	"iostream/config"
	"iostream/internal/buffer"
	"iostream/internal/logging"
	"iostream/internal/merge"
	"iostream/internal/sortutil"
	"iostream/internal/vfs"
	"iostream/mm"
	"iostream/stream"
)

// minArity is the floor merge and run arity ever falls to, even under
// severe memory pressure (ami_sort_impl.h clamps the same way).
const minArity = 2

// Sort reads every record from in, sorts them externally using cmp for
// ordering and key for the merge heap's comparisons, and returns a new
// stream containing the sorted records. If deleteInput is set, in is
// closed and its backing file removed once fully consumed.
func Sort[T any, K cmp.Ordered](
	fsys vfs.FS,
	tmpDir string,
	in *stream.Stream[T],
	codec stream.Codec[T],
	key func(T) K,
	compare sortutil.Comparator[T],
	acct *mm.Accountant,
	opts config.Options,
	deleteInput bool,
) (*stream.Stream[T], error) {
	runs, err := makeRuns(fsys, tmpDir, in, codec, compare, acct, opts)
	if deleteInput {
		in.Persist(stream.Delete)
		if cerr := in.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		out, err := stream.OpenAnonymousSize[T](fsys, tmpDir, codec, acct, opts.StreamBufferSize)
		if err != nil {
			return nil, err
		}
		out.Persist(stream.Persistent)
		return out, nil
	}
	if len(runs) == 1 {
		return stream.OpenSize[T](fsys, runs[0], codec, acct, opts.StreamBufferSize)
	}
	return multiMerge(fsys, tmpDir, runs, codec, key, acct, opts)
}

// makeRuns reads the input in chunks sized to available memory, sorts each
// chunk, and flushes it as a persistent anonymous stream. It returns the
// run paths in the order produced.
func makeRuns[T any](
	fsys vfs.FS,
	tmpDir string,
	in *stream.Stream[T],
	codec stream.Codec[T],
	compare sortutil.Comparator[T],
	acct *mm.Accountant,
	opts config.Options,
) ([]string, error) {
	runSize := runCapacity(acct, codec.Size())
	buf := buffer.NewWithCutoff[T](runSize, compare, opts.InsertionSortCutoff)

	var runs []string
	for {
		items, readErr := in.ReadArray(runSize)
		if readErr != nil && !errors.Is(readErr, iostream.ErrEndOfStream) {
			return runs, readErr
		}
		eos := errors.Is(readErr, iostream.ErrEndOfStream)

		if len(items) > 0 {
			buf.Clear()
			buf.InsertArray(items)
			buf.Sort()

			runStream, err := stream.OpenAnonymousSize[T](fsys, tmpDir, codec, acct, opts.StreamBufferSize)
			if err != nil {
				return runs, err
			}
			if _, err := runStream.WriteArray(buf.Data()); err != nil {
				return runs, err
			}
			runStream.Persist(stream.Persistent)
			if err := runStream.Close(); err != nil {
				return runs, err
			}
			runs = append(runs, runStream.Name())
		}

		if eos {
			break
		}
	}
	return runs, nil
}

// runCapacity derives the run-formation buffer size (in records) from the
// accountant's currently available memory, matching
// initializeRunFormation's run_size = mm_avail/sizeof(T).
func runCapacity(acct *mm.Accountant, itemSize int) int {
	if itemSize <= 0 {
		itemSize = 1
	}
	avail := int64(itemSize)
	if acct != nil {
		if a := acct.MemoryAvailable(); a > int64(itemSize) {
			avail = a
		}
	}
	n := int(avail / int64(itemSize))
	if n < 1 {
		n = 1
	}
	return n
}

// mergeArity derives the k-way merge fan-in from available memory and the
// caller's max_streams_open cap, matching singleMerge's arity estimate. If
// the cap forces a narrower fan-in than memory alone would allow, or if the
// memory-derived estimate itself had to be clamped up to minArity, this
// reports a warning and proceeds rather than failing the merge outright
// (the engine has no way to open more streams than the caller has budgeted
// or than memory allows, so narrowing the merge is the only option).
func mergeArity(acct *mm.Accountant, bufferSize int, nRuns int, maxStreamsOpen int) int {
	maxArity := minArity
	if acct != nil && bufferSize > 0 {
		maxArity = int(acct.MemoryAvailable() / int64(2*bufferSize))
	}
	if maxStreamsOpen > 0 && maxArity > maxStreamsOpen {
		maxArity = maxStreamsOpen
		if acct != nil {
			acct.WarnOnce("extsort.mergeArity.insufficientAvailableStreams",
				"%smergeArity: merge arity clamped to max_streams_open=%d (%s)",
				logging.NSSort, maxStreamsOpen, iostream.InsufficientAvailableStreams)
		}
	}
	if maxArity < minArity {
		maxArity = minArity
		if acct != nil {
			acct.WarnOnce("extsort.mergeArity.insufficientMainMemory",
				"%smergeArity: merge arity clamped to floor %d (%s)",
				logging.NSSort, minArity, iostream.InsufficientMainMemory)
		}
	}
	if nRuns < maxArity {
		return nRuns
	}
	return maxArity
}

// streamSource adapts a *stream.Stream[T] to merge.Source[T].
type streamSource[T any] struct {
	s *stream.Stream[T]
}

func (ss *streamSource[T]) Next() (T, error) { return ss.s.ReadItem() }

// singleMerge performs one merge pass: it dequeues up to `arity` run paths
// from the front of runs, opens and merges them, and returns the resulting
// output stream's path together with the remaining run paths.
func singleMerge[T any, K cmp.Ordered](
	fsys vfs.FS,
	tmpDir string,
	runs []string,
	codec stream.Codec[T],
	key func(T) K,
	acct *mm.Accountant,
	opts config.Options,
) (string, []string, error) {
	arity := mergeArity(acct, opts.StreamBufferSize, len(runs), opts.MaxStreamsOpen)
	front, rest := runs[:arity], runs[arity:]

	opened := make([]*stream.Stream[T], 0, len(front))
	sources := make([]merge.Source[T], 0, len(front))
	for _, path := range front {
		s, err := stream.OpenSize[T](fsys, path, codec, acct, opts.StreamBufferSize)
		if err != nil {
			return "", nil, err
		}
		s.Persist(stream.Delete)
		opened = append(opened, s)
		sources = append(sources, &streamSource[T]{s: s})
	}

	h, err := merge.New[T, K](sources, key)
	if err != nil {
		return "", nil, err
	}

	out, err := stream.OpenAnonymousSize[T](fsys, tmpDir, codec, acct, opts.StreamBufferSize)
	if err != nil {
		return "", nil, err
	}
	out.Persist(stream.Persistent)

	for {
		v, ok, err := h.ExtractMin()
		if err != nil {
			return "", nil, err
		}
		if !ok {
			break
		}
		if err := out.WriteItem(v); err != nil {
			return "", nil, err
		}
	}

	for _, s := range opened {
		if err := s.Close(); err != nil {
			return "", nil, err
		}
	}
	if err := out.Close(); err != nil {
		return "", nil, err
	}
	return out.Name(), rest, nil
}

// multiMerge repeatedly calls singleMerge on the front of runs, folding its
// output back into the run list, until exactly one stream remains.
func multiMerge[T any, K cmp.Ordered](
	fsys vfs.FS,
	tmpDir string,
	runs []string,
	codec stream.Codec[T],
	key func(T) K,
	acct *mm.Accountant,
	opts config.Options,
) (*stream.Stream[T], error) {
	for len(runs) > 1 {
		out, rest, err := singleMerge[T, K](fsys, tmpDir, runs, codec, key, acct, opts)
		if err != nil {
			return nil, err
		}
		runs = append(rest, out)
	}
	return stream.OpenSize[T](fsys, runs[0], codec, acct, opts.StreamBufferSize)
}
