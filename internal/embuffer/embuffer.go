// Package embuffer implements the EM-PQ's external-memory buffer level Bᵢ
// (i≥1): a fixed-arity array of slots, each holding one sorted sub-stream
// of nominal size a^(i-1)*|B0|. No original_source header named
// "embuffer.h" is present in this corpus; this package is grounded directly
// on the spec's EM buffer Bᵢ data-model description and on empq.h's
// declared usage of em_buffer<T,Key> (the em_pqueue::buff array, arity,
// get_nbstreams()).
package embuffer

import (
	"iostream"
	"iostream/internal/logging"
	"iostream/internal/vfs"
	"iostream/mm"
	"iostream/stream"
)

// Slot holds the metadata for one sub-stream occupying a buffer position.
// The stream handle may be nil between accesses when the buffer runs in
// save-memory mode, in which case it is reopened from path on demand.
type Slot[T any] struct {
	path    string
	size    int64 // logical length at the time the slot was filled
	deleted int64 // leading items logically consumed without being rewritten
	handle  *stream.Stream[T]
}

// EffectiveSize returns size-deleted, the count of items still live in the
// slot.
func (s *Slot[T]) EffectiveSize() int64 { return s.size - s.deleted }

// Path returns the slot's backing stream path.
func (s *Slot[T]) Path() string { return s.path }

// Deleted returns the count of leading items logically consumed from the
// slot's sub-stream without rewriting it.
func (s *Slot[T]) Deleted() int64 { return s.deleted }

// Buffer is one external-memory level Bᵢ: up to `arity` sorted sub-streams,
// filled contiguously from index 0.
type Buffer[T any] struct {
	arity      int
	slots      []Slot[T]
	next       int
	fsys       vfs.FS
	codec      stream.Codec[T]
	acct       *mm.Accountant
	saveMemory bool
}

// New creates an empty Buffer with the given arity.
func New[T any](arity int, fsys vfs.FS, codec stream.Codec[T], acct *mm.Accountant, saveMemory bool) *Buffer[T] {
	return &Buffer[T]{
		arity:      arity,
		slots:      make([]Slot[T], arity),
		fsys:       fsys,
		codec:      codec,
		acct:       acct,
		saveMemory: saveMemory,
	}
}

// Arity returns the buffer's fixed slot capacity.
func (b *Buffer[T]) Arity() int { return b.arity }

// Full reports whether every slot is occupied.
func (b *Buffer[T]) Full() bool { return b.next == b.arity }

// NBStreams returns the number of occupied (non-empty) slots.
func (b *Buffer[T]) NBStreams() int { return b.next }

// AddStream takes ownership of s (already written and sorted, its cursor
// rewound to 0), recording it in the next free slot. In save-memory mode
// the handle is closed immediately after recording its metadata, to be
// reopened lazily on Open. It is an error to add to a full buffer.
func (b *Buffer[T]) AddStream(s *stream.Stream[T]) error {
	if b.Full() {
		if b.acct != nil {
			log := b.acct.Logger()
			if !logging.IsNil(log) {
				log.Fatalf("%sAddStream: %s: buffer full at arity=%d", logging.NSEMPQ, s.Name(), b.arity)
			}
		}
		return iostream.NewError("embuffer.AddStream", s.Name(), iostream.OutOfRange)
	}
	slot := &b.slots[b.next]
	slot.path = s.Name()
	slot.size = s.Length()
	slot.deleted = 0
	if b.saveMemory {
		s.Persist(stream.Persistent)
		if err := s.Close(); err != nil {
			return err
		}
		slot.handle = nil
	} else {
		slot.handle = s
	}
	b.next++
	return nil
}

// Open returns the live stream handle for slot j, reopening it from disk
// in save-memory mode if it isn't already held open.
func (b *Buffer[T]) Open(j int) (*stream.Stream[T], error) {
	slot := &b.slots[j]
	if slot.handle != nil {
		return slot.handle, nil
	}
	s, err := stream.Open[T](b.fsys, slot.path, b.codec, b.acct)
	if err != nil {
		return nil, err
	}
	s.Persist(stream.Persistent)
	if !b.saveMemory {
		slot.handle = s
	}
	return s, nil
}

// ReleaseIfSaveMemory closes the handle for slot j if the buffer runs in
// save-memory mode, keeping only its metadata resident.
func (b *Buffer[T]) ReleaseIfSaveMemory(j int) error {
	if !b.saveMemory {
		return nil
	}
	slot := &b.slots[j]
	if slot.handle == nil {
		return nil
	}
	err := slot.handle.Close()
	slot.handle = nil
	return err
}

// MarkDeleted increases slot j's deleted count by n, recording that n
// leading items have been logically consumed without rewriting the stream.
func (b *Buffer[T]) MarkDeleted(j int, n int64) {
	b.slots[j].deleted += n
}

// EffectiveSize returns the number of items still live in slot j.
func (b *Buffer[T]) EffectiveSize(j int) int64 {
	return b.slots[j].EffectiveSize()
}

// Slots returns the occupied slots in order, for callers (the EM-PQ's level
// emptying and PQ refill) that need to iterate every live sub-stream.
func (b *Buffer[T]) Slots() []Slot[T] {
	return b.slots[:b.next]
}

// Clear empties the buffer's bookkeeping without touching any backing
// files; callers are expected to have already consumed or reassigned every
// slot's stream.
func (b *Buffer[T]) Clear() {
	b.next = 0
	b.slots = make([]Slot[T], b.arity)
}

// Compact drops every slot whose EffectiveSize has reached zero, deleting
// its backing stream, and slides the remaining slots down to keep them
// contiguous from index 0 (the EM-PQ's fillpq cleanup step).
func (b *Buffer[T]) Compact() error {
	kept := b.slots[:0]
	for i := 0; i < b.next; i++ {
		slot := b.slots[i]
		if slot.EffectiveSize() <= 0 {
			s, err := b.Open(i)
			if err != nil {
				return err
			}
			s.Persist(stream.Delete)
			if err := s.Close(); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, slot)
	}
	n := len(kept)
	for i := n; i < b.next; i++ {
		b.slots[i] = Slot[T]{}
	}
	b.next = n
	return nil
}
