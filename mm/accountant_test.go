package mm

import (
	"errors"
	"testing"

	"iostream"
)

func TestAccountant_AllocationConservation(t *testing.T) {
	a := New(nil)
	a.SetMemoryLimit(1024)

	if err := a.RegisterAllocation("t1", 100); err != nil {
		t.Fatalf("RegisterAllocation: %v", err)
	}
	if got := a.MemoryUsed(); got != 100 {
		t.Errorf("MemoryUsed() = %d, want 100", got)
	}
	if got := a.MemoryAvailable(); got != 924 {
		t.Errorf("MemoryAvailable() = %d, want 924", got)
	}

	a.RegisterDeallocation(100)
	if got := a.MemoryUsed(); got != 0 {
		t.Errorf("MemoryUsed() after dealloc = %d, want 0", got)
	}
}

func TestAccountant_AbortMode(t *testing.T) {
	a := New(nil)
	a.SetMemoryLimit(100)
	a.EnforceMemoryLimit()

	err := a.RegisterAllocation("t1", 200)
	if err == nil {
		t.Fatal("expected error in abort mode")
	}
	var ioErr *iostream.Error
	if !errors.As(err, &ioErr) || ioErr.Kind != iostream.MMError {
		t.Errorf("expected MMError, got %v", err)
	}
	// Allocation must not be committed when aborted.
	if got := a.MemoryUsed(); got != 0 {
		t.Errorf("MemoryUsed() after aborted allocation = %d, want 0", got)
	}
}

func TestAccountant_WarnMode(t *testing.T) {
	a := New(nil)
	a.SetMemoryLimit(100)
	a.WarnMemoryLimit()

	if err := a.RegisterAllocation("t1", 200); err != nil {
		t.Fatalf("RegisterAllocation in warn mode should not error: %v", err)
	}
	if got := a.MemoryUsed(); got != 200 {
		t.Errorf("MemoryUsed() = %d, want 200 (warn mode still commits)", got)
	}
}

func TestAccountant_IgnoreMode(t *testing.T) {
	a := New(nil)
	a.SetMemoryLimit(1)
	a.IgnoreMemoryLimit()

	if err := a.RegisterAllocation("t1", 1000); err != nil {
		t.Fatalf("RegisterAllocation in ignore mode should not error: %v", err)
	}
	if got := a.MemoryUsed(); got != 1000 {
		t.Errorf("MemoryUsed() = %d, want 1000", got)
	}
}

func TestAccountant_DeallocationPanicsOnOverdraw(t *testing.T) {
	a := New(nil)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on overdraw")
		}
	}()
	a.RegisterDeallocation(1)
}

func TestAccountant_UsageSnapshotMaximum(t *testing.T) {
	a := New(nil)
	a.SetMemoryLimit(1000)

	a.RegisterAllocation("t1", 500)
	a.RegisterDeallocation(200)
	a.RegisterAllocation("t2", 100)

	snap := a.UsageSnapshot()
	if snap.Maximum != 500 {
		t.Errorf("Maximum = %d, want 500", snap.Maximum)
	}
	if snap.Current != 400 {
		t.Errorf("Current = %d, want 400", snap.Current)
	}
}
