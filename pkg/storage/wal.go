package storage

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// WALEntryType distinguishes write-ahead log records.
type WALEntryType uint8

const (
	// WALSafepoint carries the dirty blocks flushed by a transaction
	// safepoint mid-batch.
	WALSafepoint WALEntryType = iota + 1
	// WALCommit marks a transaction as committed, carrying its remaining
	// dirty blocks.
	WALCommit
)

// WALBlock is one data block image inside a WAL record.
type WALBlock struct {
	Position uint64 `msgpack:"p"`
	Data     []byte `msgpack:"d"`
}

// WALEntry is one write-ahead log record.
type WALEntry struct {
	LSN        uint64       `msgpack:"lsn"`
	Type       WALEntryType `msgpack:"t"`
	Collection string       `msgpack:"c"`
	Blocks     []WALBlock   `msgpack:"b,omitempty"`
	Timestamp  int64        `msgpack:"ts"`
	Checksum   uint32       `msgpack:"sum"`
}

const walFileName = "litedb.wal"

// Records are framed as: 4-byte payload length, 1 flag byte (bit 0 =
// lz4-compressed), 4-byte uncompressed length, payload.
const walFrameHeaderSize = 9

// WALEngine appends transaction records to a single write-ahead log file,
// truncated after each successful checkpoint.
type WALEngine struct {
	mu          sync.Mutex
	path        string
	file        *os.File
	lsn         uint64
	durability  DurabilityLevel
	compression bool
}

// NewWALEngine opens (creating if needed) the WAL file in dir.
func NewWALEngine(dir string, durability DurabilityLevel, compression bool) (*WALEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory: %w", err)
	}
	path := filepath.Join(dir, walFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	return &WALEngine{
		path:        path,
		file:        file,
		durability:  durability,
		compression: compression,
	}, nil
}

// WriteEntry assigns an LSN and checksum, frames the record, and appends it.
func (w *WALEngine) WriteEntry(entry *WALEntry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lsn++
	entry.LSN = w.lsn
	entry.Timestamp = time.Now().UnixNano()
	entry.Checksum = 0
	sum, err := checksumEntry(entry)
	if err != nil {
		return fmt.Errorf("failed to checksum WAL entry: %w", err)
	}
	entry.Checksum = sum

	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal WAL entry: %w", err)
	}

	payload := raw
	var flags byte
	if w.compression {
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		var hashTable [1 << 16]int
		n, err := lz4.CompressBlock(raw, buf, hashTable[:])
		if err != nil {
			return fmt.Errorf("failed to compress WAL entry: %w", err)
		}
		if n > 0 && n < len(raw) {
			payload = buf[:n]
			flags |= 1
		}
	}

	header := make([]byte, walFrameHeaderSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	header[4] = flags
	binary.BigEndian.PutUint32(header[5:9], uint32(len(raw)))
	if _, err := w.file.Write(header); err != nil {
		return fmt.Errorf("failed to write WAL frame header: %w", err)
	}
	if _, err := w.file.Write(payload); err != nil {
		return fmt.Errorf("failed to write WAL record: %w", err)
	}
	if w.durability == DurabilityFull {
		if err := w.file.Sync(); err != nil {
			return fmt.Errorf("failed to sync WAL: %w", err)
		}
	}
	return nil
}

// ReadEntries decodes and verifies every record currently in the log.
func (w *WALEngine) ReadEntries() ([]*WALEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAL file: %w", err)
	}
	defer f.Close()

	var entries []*WALEntry
	header := make([]byte, walFrameHeaderSize)
	for {
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("failed to read WAL frame header: %w", err)
		}
		payloadLen := binary.BigEndian.Uint32(header[0:4])
		flags := header[4]
		rawLen := binary.BigEndian.Uint32(header[5:9])

		payload := make([]byte, payloadLen)
		if _, err := io.ReadFull(f, payload); err != nil {
			return nil, fmt.Errorf("failed to read WAL record: %w", err)
		}
		raw := payload
		if flags&1 != 0 {
			raw = make([]byte, rawLen)
			n, err := lz4.UncompressBlock(payload, raw)
			if err != nil {
				return nil, fmt.Errorf("failed to decompress WAL record: %w", err)
			}
			raw = raw[:n]
		}

		var entry WALEntry
		if err := msgpack.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal WAL entry: %w", err)
		}
		want := entry.Checksum
		entry.Checksum = 0
		got, err := checksumEntry(&entry)
		if err != nil {
			return nil, fmt.Errorf("failed to checksum WAL entry: %w", err)
		}
		if got != want {
			return nil, fmt.Errorf("checksum verification failed for LSN %d", entry.LSN)
		}
		entry.Checksum = want
		entries = append(entries, &entry)
	}
}

// Truncate discards all records; called after a successful checkpoint has
// made them redundant.
func (w *WALEngine) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate WAL: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind WAL: %w", err)
	}
	return nil
}

// Size returns the current WAL file size in bytes.
func (w *WALEngine) Size() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	info, err := w.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close closes the underlying file.
func (w *WALEngine) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

func checksumEntry(entry *WALEntry) (uint32, error) {
	raw, err := msgpack.Marshal(entry)
	if err != nil {
		return 0, err
	}
	return crc32.ChecksumIEEE(raw), nil
}
