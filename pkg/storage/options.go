package storage

import "time"

// DurabilityLevel controls how aggressively WAL writes reach disk.
type DurabilityLevel int

const (
	// DurabilityOS leaves flushing to the OS page cache (default).
	DurabilityOS DurabilityLevel = iota
	// DurabilityFull fsyncs the WAL after every record.
	DurabilityFull
)

type Option func(*Engine)

// WithDataDir sets the directory holding the data file and, unless overridden,
// the WAL.
func WithDataDir(dir string) Option {
	return func(e *Engine) {
		e.dataDir = dir
	}
}

// WithWALDir places the write-ahead log in a separate directory.
func WithWALDir(dir string) Option {
	return func(e *Engine) {
		e.walDir = dir
	}
}

// WithSafepointThreshold sets how many dirty blocks a transaction accumulates
// before a safepoint flushes them to the WAL. Values below 1 are clamped to 1.
func WithSafepointThreshold(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.safepointThreshold = n
	}
}

// WithCheckpointInterval sets how often the background worker writes committed
// state to the data file.
func WithCheckpointInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.checkpointInterval = d
	}
}

// WithCompression enables lz4 compression of WAL records.
func WithCompression(enabled bool) Option {
	return func(e *Engine) {
		e.compression = enabled
	}
}

// WithDurability sets the WAL durability level.
func WithDurability(level DurabilityLevel) Option {
	return func(e *Engine) {
		e.durability = level
	}
}
