package config

import (
	"strings"
	"testing"

	"iostream/mm"
)

func TestDefault(t *testing.T) {
	opts := Default()
	if opts.StreamBufferSize != DefaultStreamBufferSize {
		t.Errorf("StreamBufferSize = %d, want %d", opts.StreamBufferSize, DefaultStreamBufferSize)
	}
	if opts.MaxStreamsOpen != DefaultMaxStreamsOpen {
		t.Errorf("MaxStreamsOpen = %d, want %d", opts.MaxStreamsOpen, DefaultMaxStreamsOpen)
	}
	if opts.MemoryLimit != DefaultMemoryLimit {
		t.Errorf("MemoryLimit = %d, want %d", opts.MemoryLimit, DefaultMemoryLimit)
	}
	if opts.InsertionSortCutoff != DefaultInsertionSortCutoff {
		t.Errorf("InsertionSortCutoff = %d, want %d", opts.InsertionSortCutoff, DefaultInsertionSortCutoff)
	}
}

func TestParseOptionsFile(t *testing.T) {
	data := `
[Stream]
stream_buffer_size = 4096
max_streams_open = 50

[Memory]
memory_limit = 1048576
memory_mode = abort
save_memory = true

[Sort]
insertion_sort_cutoff = 10
`
	opts, err := ParseOptionsFile(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseOptionsFile: %v", err)
	}
	if opts.StreamBufferSize != 4096 {
		t.Errorf("StreamBufferSize = %d, want 4096", opts.StreamBufferSize)
	}
	if opts.MaxStreamsOpen != 50 {
		t.Errorf("MaxStreamsOpen = %d, want 50", opts.MaxStreamsOpen)
	}
	if opts.MemoryLimit != 1048576 {
		t.Errorf("MemoryLimit = %d, want 1048576", opts.MemoryLimit)
	}
	if opts.MemoryMode != mm.Abort {
		t.Errorf("MemoryMode = %v, want Abort", opts.MemoryMode)
	}
	if !opts.SaveMemory {
		t.Error("SaveMemory = false, want true")
	}
	if opts.InsertionSortCutoff != 10 {
		t.Errorf("InsertionSortCutoff = %d, want 10", opts.InsertionSortCutoff)
	}
}

func TestParseOptionsFile_UnknownSectionIgnored(t *testing.T) {
	data := "[Unrelated]\nfoo = bar\n"
	opts, err := ParseOptionsFile(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ParseOptionsFile: %v", err)
	}
	if opts != Default() {
		t.Errorf("unknown section should leave defaults untouched, got %+v", opts)
	}
}

func TestParseMemoryMode_Invalid(t *testing.T) {
	if _, err := ParseMemoryMode("bogus"); err == nil {
		t.Error("expected error for invalid memory mode")
	}
}
