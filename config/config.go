// Package config parses the configuration knobs named in the external
// interfaces contract: stream_buffer_size, max_streams_open, memory_limit,
// memory_mode, insertion_sort_cutoff, and save_memory. Both direct struct
// construction and an INI-style options file ([Section] / key=value) are
// supported, following the shape of the teacher repo's options-file reader.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"iostream/mm"
)

// Defaults, taken from the external interfaces section and cross-checked
// against the original library's constants (STREAM_BUFFER_SIZE = 1<<18,
// MAX_STREAMS_OPEN = 200, MM_DEFAULT_MM_SIZE = 40 MiB, quicksort cutoff 20).
const (
	DefaultStreamBufferSize    = 1 << 18 // 256 KiB
	DefaultMaxStreamsOpen      = 200
	DefaultMemoryLimit         = mm.DefaultMemoryLimit
	DefaultInsertionSortCutoff = 20
)

// StreamTmpDirEnv is the environment variable naming the temp directory for
// anonymous streams. The original headers disagree between STREAM_TMPDIR
// and STREAM_DIR; this implementation settles on STREAM_TMPDIR since it is
// the name used by the more recent ami_stream.h, and documents the default
// fallback to the OS temp directory when unset (spec open question, resolved).
const StreamTmpDirEnv = "STREAM_TMPDIR"

// Options is the fully-resolved set of configuration knobs.
type Options struct {
	StreamBufferSize    int
	MaxStreamsOpen      int
	MemoryLimit         int64
	MemoryMode          mm.Mode
	InsertionSortCutoff int
	SaveMemory          bool
}

// Default returns the default Options, matching §6's stated defaults.
func Default() Options {
	return Options{
		StreamBufferSize:    DefaultStreamBufferSize,
		MaxStreamsOpen:      DefaultMaxStreamsOpen,
		MemoryLimit:         DefaultMemoryLimit,
		MemoryMode:          mm.Warn,
		InsertionSortCutoff: DefaultInsertionSortCutoff,
		SaveMemory:          false,
	}
}

// TempDir resolves the temp directory for anonymous streams: the directory
// named by StreamTmpDirEnv if set, else the OS default temp directory.
func TempDir() string {
	if d := os.Getenv(StreamTmpDirEnv); d != "" {
		return d
	}
	return os.TempDir()
}

// ParseMemoryMode parses one of {ignore, abort, warn}.
func ParseMemoryMode(s string) (mm.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ignore":
		return mm.Ignore, nil
	case "abort":
		return mm.Abort, nil
	case "warn":
		return mm.Warn, nil
	default:
		return mm.Warn, fmt.Errorf("config: unknown memory_mode %q", s)
	}
}

// ReadOptionsFile reads an INI-style options file and returns the resolved
// Options, starting from Default() and overriding only the keys present.
func ReadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	return ParseOptionsFile(f)
}

// ParseOptionsFile parses an INI-style stream of [Section] / key=value pairs.
// Recognised sections: [Stream], [Sort], [Memory]. Unknown sections and keys
// are ignored so an options file can carry unrelated sections without error.
func ParseOptionsFile(r io.Reader) (Options, error) {
	opts := Default()
	section := ""

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		if err := applyKey(&opts, section, key, value); err != nil {
			return Options{}, err
		}
	}
	if err := scanner.Err(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

func applyKey(opts *Options, section, key, value string) error {
	switch section + "." + key {
	case "stream.stream_buffer_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: stream_buffer_size: %w", err)
		}
		opts.StreamBufferSize = n
	case "stream.max_streams_open":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: max_streams_open: %w", err)
		}
		opts.MaxStreamsOpen = n
	case "memory.memory_limit":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("config: memory_limit: %w", err)
		}
		opts.MemoryLimit = n
	case "memory.memory_mode":
		mode, err := ParseMemoryMode(value)
		if err != nil {
			return err
		}
		opts.MemoryMode = mode
	case "sort.insertion_sort_cutoff":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config: insertion_sort_cutoff: %w", err)
		}
		opts.InsertionSortCutoff = n
	case "memory.save_memory":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("config: save_memory: %w", err)
		}
		opts.SaveMemory = b
	}
	return nil
}
