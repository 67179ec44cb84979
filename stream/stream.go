// Package stream implements the typed byte stream: an append/random-access
// sequence of fixed-size records persisted in a flat file, with substream
// views and a configurable destruction policy. It is grounded on the
// original library's AMI_STREAM (ami_stream.h / ami_stream_impl.h): one
// buffered file handle per stream, a byte offset cursor expressed in units
// of sizeof(T), and substreams that narrow the logical window without
// copying data.
//
// The on-disk layout is a flat array of n*Size() bytes in native
// endianness and native struct packing. There is no header, magic, or
// trailer; stream identity is the file path.
package stream

import (
	"bufio"
	"errors"
	"io"

	"iostream"
	"iostream/internal/logging"
	"iostream/internal/mempool"
	"iostream/internal/vfs"
	"iostream/mm"
)

// Policy controls what happens to the backing file when a stream is closed.
type Policy int

const (
	// Persistent keeps the backing file after Close.
	Persistent Policy = iota
	// Delete removes the backing file on Close. Never applied to substreams.
	Delete
	// ReadOnce behaves like Persistent; items are not evicted from the file
	// as they are read since the OS page cache already absorbs the cost.
	ReadOnce
)

func (p Policy) String() string {
	switch p {
	case Persistent:
		return "persistent"
	case Delete:
		return "delete"
	case ReadOnce:
		return "read_once"
	default:
		return "unknown"
	}
}

// DefaultBufferSize is the per-stream I/O buffer size, matching the
// original library's default setvbuf size for AMI_STREAM.
const DefaultBufferSize = 1 << 18

type mode int

const (
	modeNone mode = iota
	modeRead
	modeWrite
)

// Stream is an ordered sequence of T backed by a file, with an independent
// cursor and an optional substream window.
type Stream[T any] struct {
	fs    vfs.FS
	file  vfs.File
	path  string
	codec Codec[T]
	size  int

	policy  Policy
	acct    *mm.Accountant
	acctTag string
	bufSize int

	reader *bufio.Reader
	writer *bufio.Writer
	mode   mode

	bos    int64 // absolute record index of window start
	eos    int64 // absolute record index of window end (exclusive)
	cursor int64 // absolute record index, bos <= cursor <= eos

	substream bool
	level     int
}

// Create opens path for writing, truncating any existing file, and
// registers the stream's buffer overhead with acct, using the default
// (256 KiB) I/O buffer size.
func Create[T any](fsys vfs.FS, path string, codec Codec[T], acct *mm.Accountant) (*Stream[T], error) {
	return CreateSize(fsys, path, codec, acct, DefaultBufferSize)
}

// CreateSize is Create with an explicit I/O buffer size, matching the
// `stream_buffer_size` configuration knob (§6).
func CreateSize[T any](fsys vfs.FS, path string, codec Codec[T], acct *mm.Accountant, bufSize int) (*Stream[T], error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, wrapOSErr(acct, "stream.Create", path, err)
	}
	return newRootStream(fsys, f, path, codec, acct, 0, bufSize)
}

// Open opens an existing file at path for reading and writing, using the
// default (256 KiB) I/O buffer size.
func Open[T any](fsys vfs.FS, path string, codec Codec[T], acct *mm.Accountant) (*Stream[T], error) {
	return OpenSize(fsys, path, codec, acct, DefaultBufferSize)
}

// OpenSize is Open with an explicit I/O buffer size.
func OpenSize[T any](fsys vfs.FS, path string, codec Codec[T], acct *mm.Accountant, bufSize int) (*Stream[T], error) {
	f, err := fsys.OpenReadWrite(path)
	if err != nil {
		return nil, wrapOSErr(acct, "stream.Open", path, err)
	}
	sz, err := f.Size()
	if err != nil {
		f.Close()
		return nil, wrapOSErr(acct, "stream.Open", path, err)
	}
	length := sz / int64(codec.Size())
	return newRootStream(fsys, f, path, codec, acct, length, bufSize)
}

// OpenAnonymous creates a new stream under tmpDir with a collision-resistant
// generated name and Delete persistence, using the default I/O buffer size.
func OpenAnonymous[T any](fsys vfs.FS, tmpDir string, codec Codec[T], acct *mm.Accountant) (*Stream[T], error) {
	return OpenAnonymousSize(fsys, tmpDir, codec, acct, DefaultBufferSize)
}

// OpenAnonymousSize is OpenAnonymous with an explicit I/O buffer size.
func OpenAnonymousSize[T any](fsys vfs.FS, tmpDir string, codec Codec[T], acct *mm.Accountant, bufSize int) (*Stream[T], error) {
	path := anonymousPath(tmpDir)
	s, err := CreateSize(fsys, path, codec, acct, bufSize)
	if err != nil {
		return nil, err
	}
	s.policy = Delete
	return s, nil
}

func newRootStream[T any](fsys vfs.FS, f vfs.File, path string, codec Codec[T], acct *mm.Accountant, length int64, bufSize int) (*Stream[T], error) {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	s := &Stream[T]{
		fs:      fsys,
		file:    f,
		path:    path,
		codec:   codec,
		size:    codec.Size(),
		policy:  Persistent,
		acct:    acct,
		bufSize: bufSize,
		bos:     0,
		eos:     length,
		cursor:  0,
	}
	s.reader = bufio.NewReaderSize(f, s.bufSize)
	s.writer = bufio.NewWriterSize(f, s.bufSize)
	if acct != nil {
		s.acctTag = "stream:" + path
		if err := acct.RegisterAllocation(s.acctTag, int64(2*s.bufSize)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

// logFatal routes a fatal (non-end-of-stream) condition through acct's
// logger before the caller returns the corresponding *iostream.Error, so
// every fatal abort in this package is diagnosed at the point it happens
// rather than silently left to the caller to notice.
func logFatal(acct *mm.Accountant, op, path string, kind iostream.ErrorKind) {
	if acct == nil {
		return
	}
	log := acct.Logger()
	if logging.IsNil(log) {
		return
	}
	if path != "" {
		log.Fatalf("%s%s: %s: %s", logging.NSStream, op, path, kind)
	} else {
		log.Fatalf("%s%s: %s", logging.NSStream, op, kind)
	}
}

func wrapOSErr(acct *mm.Accountant, op, path string, err error) error {
	logFatal(acct, op, path, iostream.OSError)
	return &iostream.Error{Kind: iostream.OSError, Op: op, Path: path, Err: err}
}

func wrapIOErr(acct *mm.Accountant, op, path string, err error) error {
	logFatal(acct, op, path, iostream.IOError)
	return &iostream.Error{Kind: iostream.IOError, Op: op, Path: path, Err: err}
}

func fatalErr(acct *mm.Accountant, op, path string, kind iostream.ErrorKind) error {
	logFatal(acct, op, path, kind)
	return iostream.NewError(op, path, kind)
}

func eosErr(op, path string) error {
	return iostream.NewError(op, path, iostream.EndOfStream)
}

// Name returns the backing file path.
func (s *Stream[T]) Name() string { return s.path }

// Length returns the number of records in the stream's current window.
func (s *Stream[T]) Length() int64 { return s.eos - s.bos }

// Persist sets the destruction policy applied on Close.
func (s *Stream[T]) Persist(p Policy) { s.policy = p }

func (s *Stream[T]) ensureReadMode() error {
	if s.mode == modeRead {
		return nil
	}
	if s.mode == modeWrite {
		if err := s.writer.Flush(); err != nil {
			return wrapIOErr(s.acct, "Stream.Flush", s.path, err)
		}
	}
	if _, err := s.file.Seek(s.cursor*int64(s.size), io.SeekStart); err != nil {
		return wrapOSErr(s.acct, "Stream.Seek", s.path, err)
	}
	s.reader.Reset(s.file)
	s.mode = modeRead
	return nil
}

func (s *Stream[T]) ensureWriteMode() error {
	if s.mode == modeWrite {
		return nil
	}
	if _, err := s.file.Seek(s.cursor*int64(s.size), io.SeekStart); err != nil {
		return wrapOSErr(s.acct, "Stream.Seek", s.path, err)
	}
	s.writer.Reset(s.file)
	s.mode = modeWrite
	return nil
}

// Seek repositions the cursor to offset records from the window's
// beginning (bos).
func (s *Stream[T]) Seek(offset int64) error {
	if offset < 0 || s.bos+offset > s.eos {
		return fatalErr(s.acct, "Stream.Seek", s.path, iostream.OutOfRange)
	}
	if s.mode == modeWrite {
		if err := s.writer.Flush(); err != nil {
			return wrapIOErr(s.acct, "Stream.Seek", s.path, err)
		}
	}
	s.cursor = s.bos + offset
	s.mode = modeNone
	return nil
}

// ReadItem reads the record at the cursor and advances it by one. It
// returns an *iostream.Error wrapping iostream.ErrEndOfStream when the
// cursor is already at the window's end.
func (s *Stream[T]) ReadItem() (T, error) {
	var zero T
	if s.cursor >= s.eos {
		return zero, eosErr("Stream.ReadItem", s.path)
	}
	if err := s.ensureReadMode(); err != nil {
		return zero, err
	}
	buf := mempool.GlobalPool.Get(s.size)[:s.size]
	defer mempool.GlobalPool.Put(buf)
	if _, err := io.ReadFull(s.reader, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return zero, eosErr("Stream.ReadItem", s.path)
		}
		return zero, wrapIOErr(s.acct, "Stream.ReadItem", s.path, err)
	}
	s.cursor++
	return s.codec.Decode(buf), nil
}

// WriteItem writes v at the cursor and advances it by one, extending the
// root stream's logical length if writing past the current end. Substreams
// are read-only by contract: any write to a substream, in-bounds or not,
// fails with iostream.ReadOnly.
func (s *Stream[T]) WriteItem(v T) error {
	if s.substream {
		return fatalErr(s.acct, "Stream.WriteItem", s.path, iostream.ReadOnly)
	}
	if err := s.ensureWriteMode(); err != nil {
		return err
	}
	buf := mempool.GlobalPool.Get(s.size)[:s.size]
	defer mempool.GlobalPool.Put(buf)
	s.codec.Encode(v, buf)
	if _, err := s.writer.Write(buf); err != nil {
		return wrapIOErr(s.acct, "Stream.WriteItem", s.path, err)
	}
	s.cursor++
	if s.cursor > s.eos {
		s.eos = s.cursor
	}
	return nil
}

// ReadArray reads up to n records starting at the cursor, returning the
// records actually read. If fewer than n remain, it returns the partial
// slice together with an end-of-stream error.
func (s *Stream[T]) ReadArray(n int) ([]T, error) {
	if n <= 0 {
		return nil, nil
	}
	if err := s.ensureReadMode(); err != nil {
		return nil, err
	}
	avail := s.eos - s.cursor
	want := int64(n)
	hitEOS := false
	if want > avail {
		want = avail
		hitEOS = true
	}
	out := make([]T, 0, want)
	buf := mempool.GlobalPool.Get(s.size)[:s.size]
	defer mempool.GlobalPool.Put(buf)
	for i := int64(0); i < want; i++ {
		if _, err := io.ReadFull(s.reader, buf); err != nil {
			return out, wrapIOErr(s.acct, "Stream.ReadArray", s.path, err)
		}
		out = append(out, s.codec.Decode(buf))
	}
	s.cursor += want
	if hitEOS {
		return out, eosErr("Stream.ReadArray", s.path)
	}
	return out, nil
}

// WriteArray writes arr starting at the cursor, returning the number of
// records actually written. Substreams are read-only by contract: any write
// to a substream fails immediately with iostream.ReadOnly, writing nothing.
func (s *Stream[T]) WriteArray(arr []T) (int, error) {
	if s.substream {
		return 0, fatalErr(s.acct, "Stream.WriteArray", s.path, iostream.ReadOnly)
	}
	if err := s.ensureWriteMode(); err != nil {
		return 0, err
	}
	buf := mempool.GlobalPool.Get(s.size)[:s.size]
	defer mempool.GlobalPool.Put(buf)
	for i, v := range arr {
		s.codec.Encode(v, buf)
		if _, err := s.writer.Write(buf); err != nil {
			return i, wrapIOErr(s.acct, "Stream.WriteArray", s.path, err)
		}
		s.cursor++
		if s.cursor > s.eos {
			s.eos = s.cursor
		}
	}
	return len(arr), nil
}

// NewSubstream opens an independent, read-only view over records
// [begin, end] (inclusive) of the current window, expressed relative to
// bos. Nesting is supported; the substream's level is one more than its
// parent's.
func (s *Stream[T]) NewSubstream(begin, end int64) (*Stream[T], error) {
	if begin < 0 || end < begin {
		return nil, fatalErr(s.acct, "Stream.NewSubstream", s.path, iostream.OutOfRange)
	}
	absBegin := s.bos + begin
	absEnd := s.bos + end + 1
	if absEnd > s.eos {
		return nil, fatalErr(s.acct, "Stream.NewSubstream", s.path, iostream.OutOfRange)
	}

	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, wrapOSErr(s.acct, "Stream.NewSubstream", s.path, err)
	}

	sub := &Stream[T]{
		fs:        s.fs,
		file:      f,
		path:      s.path,
		codec:     s.codec,
		size:      s.size,
		policy:    Persistent,
		acct:      s.acct,
		bufSize:   s.bufSize,
		bos:       absBegin,
		eos:       absEnd,
		cursor:    absBegin,
		substream: true,
		level:     s.level + 1,
	}
	sub.reader = bufio.NewReaderSize(f, sub.bufSize)
	sub.writer = bufio.NewWriterSize(f, sub.bufSize)
	if sub.acct != nil {
		sub.acctTag = "substream:" + s.path
		if err := sub.acct.RegisterAllocation(sub.acctTag, int64(2*sub.bufSize)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return sub, nil
}

// Close flushes pending writes, closes the backing file handle, and
// removes the file if policy is Delete. Closing a substream never deletes
// the backing file regardless of policy.
func (s *Stream[T]) Close() error {
	var flushErr error
	if s.mode == modeWrite {
		flushErr = s.writer.Flush()
	}
	closeErr := s.file.Close()
	if s.acct != nil {
		s.acct.RegisterDeallocation(int64(2 * s.bufSize))
	}
	if !s.substream && s.policy == Delete {
		if err := s.fs.Remove(s.path); err != nil && closeErr == nil {
			closeErr = err
		}
	}
	if flushErr != nil {
		return wrapIOErr(s.acct, "Stream.Close", s.path, flushErr)
	}
	if closeErr != nil {
		return wrapOSErr(s.acct, "Stream.Close", s.path, closeErr)
	}
	return nil
}
