// Package mm implements the process-wide memory accountant: a byte ledger
// that every stream, heap, and buffer allocation registers against, with a
// configurable policy for what happens when the limit is exceeded.
package mm

import (
	"fmt"
	"sync"

	"iostream"
	"iostream/internal/logging"
)

// Mode controls behaviour when register_allocation would exceed the limit.
type Mode int

const (
	// Ignore silently allows the allocation; used is tracked regardless.
	Ignore Mode = iota
	// Abort returns an MM_ERROR and the caller is expected to treat it as fatal.
	Abort
	// Warn logs once per event and allows the allocation to proceed.
	Warn
)

func (m Mode) String() string {
	switch m {
	case Ignore:
		return "ignore"
	case Abort:
		return "abort"
	case Warn:
		return "warn"
	default:
		return "unknown"
	}
}

// DefaultMemoryLimit is the default total byte budget (40 MiB), matching the
// original library's MM_DEFAULT_MM_SIZE.
const DefaultMemoryLimit = 40 * 1024 * 1024

// Usage categories, matching the original's MM_stream_usage breakdown.
// The accountant fills only Current and Maximum; Overhead and Buffer are
// never set by it and stay zero.
type Usage struct {
	Overhead int64 // fixed bookkeeping overhead; not filled by the accountant
	Buffer   int64 // I/O buffers; not filled by the accountant
	Current  int64 // bytes currently registered (equals MemoryUsed)
	Maximum  int64 // high-water mark of registered bytes
}

// Accountant is a process-wide ledger of bytes allocated to stream, heap,
// and buffer objects. It enforces a user-set limit per Mode.
type Accountant struct {
	mu    sync.Mutex
	limit int64
	used  int64
	mode  Mode
	usage Usage

	log          logging.Logger
	warnedOnce   map[string]bool
}

// New creates an Accountant with the default limit and Warn mode, matching
// the original library's default of warning rather than aborting.
func New(log logging.Logger) *Accountant {
	if logging.IsNil(log) {
		log = logging.Discard
	}
	return &Accountant{
		limit:      DefaultMemoryLimit,
		mode:       Warn,
		log:        log,
		warnedOnce: make(map[string]bool),
	}
}

// Global is the process-wide accountant singleton, matching the original
// library's global MM_manager. Nothing in this module falls back to it:
// components given a nil Accountant skip registration instead.
var Global = New(logging.Discard)

// SetMemoryLimit sets the total byte budget.
func (a *Accountant) SetMemoryLimit(bytes int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.limit = bytes
}

// EnforceMemoryLimit switches to Abort mode.
func (a *Accountant) EnforceMemoryLimit() { a.setMode(Abort) }

// IgnoreMemoryLimit switches to Ignore mode.
func (a *Accountant) IgnoreMemoryLimit() { a.setMode(Ignore) }

// WarnMemoryLimit switches to Warn mode.
func (a *Accountant) WarnMemoryLimit() { a.setMode(Warn) }

func (a *Accountant) setMode(m Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = m
}

// Mode returns the current over-limit policy.
func (a *Accountant) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// Logger returns the accountant's configured logger, so callers that
// already carry an *Accountant (stream, extsort, empq, adaptive) have a
// Logger to route their own fatal conditions through without threading a
// second parameter alongside acct everywhere.
func (a *Accountant) Logger() logging.Logger {
	return a.log
}

// RegisterAllocation adds n bytes to used. If the new total exceeds limit,
// behaviour follows Mode: Ignore proceeds silently, Warn logs once per
// distinct tag and proceeds, Abort returns an *iostream.Error(MMError) and
// does not commit the allocation.
func (a *Accountant) RegisterAllocation(tag string, n int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	newUsed := a.used + n
	if newUsed > a.limit {
		switch a.mode {
		case Abort:
			if !logging.IsNil(a.log) {
				a.log.Fatalf("%smemory limit exceeded: used=%d limit=%d tag=%s",
					logging.NSAccountant, newUsed, a.limit, tag)
			}
			return iostream.NewError("mm.RegisterAllocation", tag, iostream.MMError)
		case Warn:
			if !a.warnedOnce[tag] {
				a.warnedOnce[tag] = true
				a.log.Warnf("%smemory limit exceeded: used=%d limit=%d tag=%s",
					logging.NSAccountant, newUsed, a.limit, tag)
			}
		case Ignore:
			// fall through silently
		}
	}

	a.used = newUsed
	a.usage.Current = a.used
	if a.used > a.usage.Maximum {
		a.usage.Maximum = a.used
	}
	return nil
}

// RegisterDeallocation subtracts n bytes from used. It panics if n exceeds
// used, mirroring the original's assertion that deallocation can never drive
// the ledger negative — a violation indicates a bookkeeping bug, not a
// recoverable runtime condition.
func (a *Accountant) RegisterDeallocation(n int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > a.used {
		panic(fmt.Sprintf("mm: deallocation of %d exceeds used %d", n, a.used))
	}
	a.used -= n
	a.usage.Current = a.used
}

// WarnOnce logs a warning through the accountant's logger the first time it
// is called for a given tag, and is a no-op on every subsequent call for
// that same tag. Callers outside this package use it to report the §7
// warn-and-proceed conditions (a sizing clamp hit its floor, the
// max_streams_open cap was reached) without duplicating the warnedOnce
// bookkeeping RegisterAllocation already keeps for its own tags.
func (a *Accountant) WarnOnce(tag, format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.warnedOnce[tag] {
		return
	}
	a.warnedOnce[tag] = true
	a.log.Warnf(format, args...)
}

// MemoryAvailable returns limit - used. Sort and EM-PQ sizing call this
// before allocating.
func (a *Accountant) MemoryAvailable() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit - a.used
}

// MemoryUsed returns the current ledger total.
func (a *Accountant) MemoryUsed() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.used
}

// MemoryLimit returns the configured budget.
func (a *Accountant) MemoryLimit() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.limit
}

// UsageSnapshot returns a snapshot of the usage breakdown.
func (a *Accountant) UsageSnapshot() Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// Print writes a human-readable summary via the configured logger, matching
// the original library's MM_register::print().
func (a *Accountant) Print() {
	a.mu.Lock()
	limit, used, mode := a.limit, a.used, a.mode
	usage := a.usage
	a.mu.Unlock()
	a.log.Infof("%smemory: used=%d limit=%d mode=%s current=%d maximum=%d",
		logging.NSAccountant, used, limit, mode, usage.Current, usage.Maximum)
}
