// Package vfs provides a virtual filesystem abstraction layer.
//
// This allows the stream layer to:
//   - Use the real OS filesystem in production
//   - Use a fault-injection filesystem to test the stream layer's fatal
//     I/O-error contract without touching a real disk
//
// Streams need combined read/write/seek on a single open file (mirroring the
// original C library's single FILE* handle), so File is one interface rather
// than the split writable/sequential/random-access interfaces a caching
// storage engine would want.
package vfs

import (
	"io"
	"os"
)

// FS is the filesystem interface the stream layer is built on.
type FS interface {
	// Create creates a new file for reading and writing.
	// If the file already exists, it is truncated.
	Create(name string) (File, error)

	// OpenReadWrite opens an existing file for reading and writing without
	// truncating it (used by read_write and append_write stream modes).
	OpenReadWrite(name string) (File, error)

	// Open opens an existing file read-only.
	Open(name string) (File, error)

	// Rename atomically renames a file.
	Rename(oldname, newname string) error

	// Remove deletes a file. Removing a file that does not exist is not an error.
	Remove(name string) error

	// Stat returns file info.
	Stat(name string) (os.FileInfo, error)

	// Exists returns true if the file exists.
	Exists(name string) bool
}

// File is an open file: combined read/write/seek access plus the sizing and
// durability operations the stream layer needs.
type File interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync flushes the file contents to stable storage.
	Sync() error

	// Size returns the current file size.
	Size() (int64, error)
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *osFS) OpenReadWrite(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *osFS) Open(name string) (File, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *osFS) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (fs *osFS) Remove(name string) error {
	err := os.Remove(name)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (fs *osFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// osFile wraps os.File for the File interface.
type osFile struct {
	f *os.File
}

func (of *osFile) Read(p []byte) (int, error) {
	return of.f.Read(p)
}

func (of *osFile) Write(p []byte) (int, error) {
	return of.f.Write(p)
}

func (of *osFile) Seek(offset int64, whence int) (int64, error) {
	return of.f.Seek(offset, whence)
}

func (of *osFile) Close() error {
	return of.f.Close()
}

func (of *osFile) Truncate(size int64) error {
	return of.f.Truncate(size)
}

func (of *osFile) Sync() error {
	return of.f.Sync()
}

func (of *osFile) Size() (int64, error) {
	info, err := of.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
