package storage

import (
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// Engine owns every collection's in-memory state, the write-ahead log, and
// the checkpointed data file.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]*Collection

	dataDir            string
	walDir             string
	safepointThreshold int
	checkpointInterval time.Duration
	compression        bool
	durability         DurabilityLevel

	wal *WALEngine

	backgroundWg sync.WaitGroup
	stopChan     chan struct{}
	startOnce    sync.Once
	stopOnce     sync.Once
}

// NewEngine creates a storage engine, loading committed state from the data
// file when one exists.
func NewEngine(options ...Option) (*Engine, error) {
	e := &Engine{
		collections:        make(map[string]*Collection),
		dataDir:            ".",
		safepointThreshold: 1000,
		checkpointInterval: 30 * time.Second,
		durability:         DurabilityOS,
		stopChan:           make(chan struct{}),
	}
	for _, option := range options {
		option(e)
	}
	if e.walDir == "" {
		e.walDir = e.dataDir
	}

	if err := os.MkdirAll(e.dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	wal, err := NewWALEngine(e.walDir, e.durability, e.compression)
	if err != nil {
		return nil, err
	}
	e.wal = wal

	if err := e.loadDataFile(); err != nil {
		wal.Close()
		return nil, err
	}
	return e, nil
}

// Close checkpoints dirty collections and releases the WAL and data file.
func (e *Engine) Close() error {
	e.StopBackgroundWorkers()
	if err := e.Checkpoint(); err != nil {
		log.Printf("WARN: final checkpoint failed: %v", err)
	}
	return e.wal.Close()
}

// CreateCollection registers a collection; creating an existing one is a
// no-op returning the existing collection.
func (e *Engine) CreateCollection(name string) (*Collection, error) {
	if name == "" {
		return nil, domain.NewInvalidArgument("collection name must not be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if col, exists := e.collections[name]; exists {
		return col, nil
	}
	col := newCollection(name)
	// a brand-new collection has no writes yet but must still reach the
	// next checkpoint, or it would vanish on reopen
	col.dirty = true
	e.collections[name] = col
	return col, nil
}

// Collection returns a registered collection or a collection-not-found error.
func (e *Engine) Collection(name string) (*Collection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	col, exists := e.collections[name]
	if !exists {
		return nil, domain.NewCollectionNotFound(name)
	}
	return col, nil
}

// Collections returns the registered collection names.
func (e *Engine) Collections() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	return names
}

// OpenSnapshot grants transactional access to one collection. A write
// snapshot takes the collection's exclusive lock until Commit or Rollback;
// a read snapshot holds the shared lock.
func (e *Engine) OpenSnapshot(mode SnapshotMode, collName string, addIfNotExists bool) (*Snapshot, error) {
	if collName == "" {
		return nil, domain.NewInvalidArgument("collection name must not be empty")
	}
	col, err := e.Collection(collName)
	if err != nil {
		if !addIfNotExists || mode != SnapshotWrite {
			return nil, err
		}
		col, err = e.CreateCollection(collName)
		if err != nil {
			return nil, err
		}
	}
	if mode == SnapshotWrite {
		col.mu.Lock()
	} else {
		col.mu.RLock()
	}
	return &Snapshot{
		engine: e,
		col:    col,
		mode:   mode,
	}, nil
}

// StartBackgroundWorkers launches the periodic checkpoint loop.
func (e *Engine) StartBackgroundWorkers() {
	e.startOnce.Do(func() {
		e.backgroundWg.Add(1)
		go e.checkpointLoop()
	})
}

// StopBackgroundWorkers stops the checkpoint loop and waits for it.
func (e *Engine) StopBackgroundWorkers() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
	e.backgroundWg.Wait()
}

func (e *Engine) checkpointLoop() {
	defer e.backgroundWg.Done()
	ticker := time.NewTicker(e.checkpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := e.Checkpoint(); err != nil {
				log.Printf("ERROR: checkpoint failed: %v", err)
			}
		case <-e.stopChan:
			return
		}
	}
}

func (e *Engine) dirtyCollections() []*Collection {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []*Collection
	for _, col := range e.collections {
		col.mu.RLock()
		if col.dirty {
			out = append(out, col)
		}
		col.mu.RUnlock()
	}
	return out
}
