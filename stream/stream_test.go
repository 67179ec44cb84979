package stream

import (
	"errors"
	"testing"

	"iostream"
	"iostream/internal/vfs"
	"iostream/mm"
)

func newTestFS() vfs.FS { return vfs.Default() }

func TestStream_WriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)

	path := dir + "/a.stream"
	s, err := Create[int32](fs, path, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	vals := []int32{3, 1, 4, 1, 5, 9, 2, 6}
	for _, v := range vals {
		if err := s.WriteItem(v); err != nil {
			t.Fatalf("WriteItem: %v", err)
		}
	}
	if s.Length() != int64(len(vals)) {
		t.Fatalf("Length() = %d, want %d", s.Length(), len(vals))
	}
	if err := s.Seek(0); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	for i, want := range vals {
		got, err := s.ReadItem()
		if err != nil {
			t.Fatalf("ReadItem #%d: %v", i, err)
		}
		if got != want {
			t.Fatalf("ReadItem #%d = %d, want %d", i, got, want)
		}
	}
	_, err = s.ReadItem()
	if !iostream.IsEndOfStream(err) {
		t.Fatalf("expected end-of-stream, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestStream_DeletePolicyRemovesFile(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/b.stream"

	s, err := Create[int32](fs, path, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.Persist(Delete)
	s.WriteItem(1)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if fs.Exists(path) {
		t.Fatalf("expected backing file removed after Close with Delete policy")
	}
}

func TestStream_PersistentPolicyKeepsFile(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/c.stream"

	s, err := Create[int32](fs, path, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.WriteItem(1)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fs.Exists(path) {
		t.Fatalf("expected backing file to remain after Close with Persistent policy")
	}
}

func TestStream_OpenExistingReadsBack(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/d.stream"

	s, err := Create[int64](fs, path, Int64Codec{}, acct)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.WriteItem(100)
	s.WriteItem(200)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open[int64](fs, path, Int64Codec{}, acct)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s2.Length() != 2 {
		t.Fatalf("Length() = %d, want 2", s2.Length())
	}
	v, err := s2.ReadItem()
	if err != nil || v != 100 {
		t.Fatalf("ReadItem = %d, %v; want 100", v, err)
	}
	s2.Close()
}

func TestStream_NewSubstreamIsolation(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/e.stream"

	s, err := Create[int32](fs, path, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for i := int32(0); i < 10; i++ {
		s.WriteItem(i)
	}
	s.Seek(0)

	sub, err := s.NewSubstream(2, 5)
	if err != nil {
		t.Fatalf("NewSubstream: %v", err)
	}
	if sub.Length() != 4 {
		t.Fatalf("sub.Length() = %d, want 4", sub.Length())
	}
	want := []int32{2, 3, 4, 5}
	for i, w := range want {
		got, err := sub.ReadItem()
		if err != nil || got != w {
			t.Fatalf("sub.ReadItem #%d = %d, %v; want %d", i, got, err, w)
		}
	}
	_, err = sub.ReadItem()
	if !iostream.IsEndOfStream(err) {
		t.Fatalf("expected end-of-stream at substream boundary, got %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("sub.Close: %v", err)
	}
	if !fs.Exists(path) {
		t.Fatalf("closing a substream must never delete the backing file")
	}
	s.Close()
}

func TestStream_SubstreamWriteFailsAtBoundary(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/f.stream"

	s, _ := Create[int32](fs, path, Int32Codec{}, acct)
	for i := int32(0); i < 4; i++ {
		s.WriteItem(i)
	}
	s.Seek(0)
	sub, err := s.NewSubstream(0, 1)
	if err != nil {
		t.Fatalf("NewSubstream: %v", err)
	}
	sub.Seek(2) // at eos of the 2-record window
	err = sub.WriteItem(99)
	var ioErr *iostream.Error
	if !errors.As(err, &ioErr) || ioErr.Kind != iostream.ReadOnly {
		t.Fatalf("expected ReadOnly writing past substream bound, got %v", err)
	}
	sub.Close()
	s.Close()
}

func TestStream_SubstreamWriteFailsInBounds(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/f2.stream"

	s, _ := Create[int32](fs, path, Int32Codec{}, acct)
	for i := int32(0); i < 4; i++ {
		s.WriteItem(i)
	}
	s.Seek(0)
	sub, err := s.NewSubstream(0, 3)
	if err != nil {
		t.Fatalf("NewSubstream: %v", err)
	}
	sub.Seek(1) // well within the substream's window

	err = sub.WriteItem(99)
	var ioErr *iostream.Error
	if !errors.As(err, &ioErr) || ioErr.Kind != iostream.ReadOnly {
		t.Fatalf("expected ReadOnly for in-bounds substream WriteItem, got %v", err)
	}

	n, err := sub.WriteArray([]int32{1, 2})
	if n != 0 || !errors.As(err, &ioErr) || ioErr.Kind != iostream.ReadOnly {
		t.Fatalf("expected ReadOnly for in-bounds substream WriteArray, got n=%d err=%v", n, err)
	}
	sub.Close()
	s.Close()
}

func TestStream_ReadArrayPartialReturnsEOS(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/g.stream"

	s, _ := Create[int32](fs, path, Int32Codec{}, acct)
	for i := int32(0); i < 3; i++ {
		s.WriteItem(i)
	}
	s.Seek(0)
	out, err := s.ReadArray(10)
	if !iostream.IsEndOfStream(err) {
		t.Fatalf("expected end-of-stream on partial ReadArray, got %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	s.Close()
}

func TestStream_WriteArrayThenReadArray(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/h.stream"

	s, _ := Create[int32](fs, path, Int32Codec{}, acct)
	n, err := s.WriteArray([]int32{7, 8, 9})
	if err != nil || n != 3 {
		t.Fatalf("WriteArray = %d, %v", n, err)
	}
	s.Seek(0)
	out, err := s.ReadArray(3)
	if err != nil {
		t.Fatalf("ReadArray: %v", err)
	}
	want := []int32{7, 8, 9}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("ReadArray = %v, want %v", out, want)
		}
	}
	s.Close()
}

func TestStream_SeekOutOfRange(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)
	path := dir + "/i.stream"

	s, _ := Create[int32](fs, path, Int32Codec{}, acct)
	s.WriteItem(1)
	err := s.Seek(5)
	var ioErr *iostream.Error
	if !errors.As(err, &ioErr) || ioErr.Kind != iostream.OutOfRange {
		t.Fatalf("Seek out of range = %v, want OutOfRange", err)
	}
	s.Close()
}

func TestStream_AnonymousStreamsGetUniquePaths(t *testing.T) {
	dir := t.TempDir()
	fs := newTestFS()
	acct := mm.New(nil)

	s1, err := OpenAnonymous[int32](fs, dir, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("OpenAnonymous: %v", err)
	}
	s2, err := OpenAnonymous[int32](fs, dir, Int32Codec{}, acct)
	if err != nil {
		t.Fatalf("OpenAnonymous: %v", err)
	}
	if s1.Name() == s2.Name() {
		t.Fatalf("expected distinct anonymous paths, got %s twice", s1.Name())
	}
	s1.Close()
	s2.Close()
	if fs.Exists(s1.Name()) || fs.Exists(s2.Name()) {
		t.Fatalf("anonymous streams should delete their backing file on Close")
	}
}
