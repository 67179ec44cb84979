package vfs

import (
	"errors"
	"os"
	"sync"
)

var (
	// ErrInjectedReadError is returned when a read error is injected.
	ErrInjectedReadError = errors.New("vfs: injected read error")

	// ErrInjectedWriteError is returned when a write error is injected.
	ErrInjectedWriteError = errors.New("vfs: injected write error")
)

// FaultInjectionFS wraps an FS and allows injecting I/O errors on specific
// paths. It exists to exercise the stream layer's fatal io_error contract
// (spec §7) without needing a real failing disk. Unlike a storage engine
// that must survive process crashes, streams make no durability promise
// across crashes (explicit non-goal), so there is no rename/sync/crash
// simulation here — only the two injectable failure modes io_error covers.
type FaultInjectionFS struct {
	base FS

	mu             sync.Mutex
	readErrorPath  string
	writeErrorPath string
}

// NewFaultInjectionFS wraps base with fault-injection capability.
func NewFaultInjectionFS(base FS) *FaultInjectionFS {
	return &FaultInjectionFS{base: base}
}

// InjectReadError causes the next read on path to fail with ErrInjectedReadError.
func (fs *FaultInjectionFS) InjectReadError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.readErrorPath = path
}

// InjectWriteError causes the next write on path to fail with ErrInjectedWriteError.
func (fs *FaultInjectionFS) InjectWriteError(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.writeErrorPath = path
}

// ClearInjections removes all pending fault injections.
func (fs *FaultInjectionFS) ClearInjections() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.readErrorPath = ""
	fs.writeErrorPath = ""
}

func (fs *FaultInjectionFS) wrap(path string, f File, err error) (File, error) {
	if err != nil {
		return nil, err
	}
	return &faultInjectionFile{fs: fs, path: path, File: f}, nil
}

func (fs *FaultInjectionFS) Create(name string) (File, error) {
	f, err := fs.base.Create(name)
	return fs.wrap(name, f, err)
}

func (fs *FaultInjectionFS) OpenReadWrite(name string) (File, error) {
	f, err := fs.base.OpenReadWrite(name)
	return fs.wrap(name, f, err)
}

func (fs *FaultInjectionFS) Open(name string) (File, error) {
	f, err := fs.base.Open(name)
	return fs.wrap(name, f, err)
}

func (fs *FaultInjectionFS) Rename(oldname, newname string) error {
	return fs.base.Rename(oldname, newname)
}

func (fs *FaultInjectionFS) Remove(name string) error {
	return fs.base.Remove(name)
}

func (fs *FaultInjectionFS) Stat(name string) (os.FileInfo, error) {
	return fs.base.Stat(name)
}

func (fs *FaultInjectionFS) Exists(name string) bool {
	return fs.base.Exists(name)
}

// faultInjectionFile wraps a File and consults the owning FS for pending
// injections on each Read/Write call.
type faultInjectionFile struct {
	File
	fs   *FaultInjectionFS
	path string
}

func (f *faultInjectionFile) Read(p []byte) (int, error) {
	f.fs.mu.Lock()
	inject := f.fs.readErrorPath == f.path
	if inject {
		f.fs.readErrorPath = ""
	}
	f.fs.mu.Unlock()
	if inject {
		return 0, ErrInjectedReadError
	}
	return f.File.Read(p)
}

func (f *faultInjectionFile) Write(p []byte) (int, error) {
	f.fs.mu.Lock()
	inject := f.fs.writeErrorPath == f.path
	if inject {
		f.fs.writeErrorPath = ""
	}
	f.fs.mu.Unlock()
	if inject {
		return 0, ErrInjectedWriteError
	}
	return f.File.Write(p)
}
