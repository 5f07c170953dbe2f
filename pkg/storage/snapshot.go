package storage

import (
	"fmt"
	"log"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
	"github.com/mattbab/LiteDB/pkg/indexing"
)

// SnapshotMode selects read or write access.
type SnapshotMode int

const (
	SnapshotRead SnapshotMode = iota
	SnapshotWrite
)

// SnapshotStats counts the physical work a transaction performed.
type SnapshotStats struct {
	BlocksWritten int
	NodesAdded    int
	NodesDeleted  int
	Safepoints    int
}

type undoKind int

const (
	undoBlockWrite undoKind = iota
	undoBlockInsert
	undoBlockFree
	undoNodeAdd
	undoNodeDelete
	undoIndexAdd
)

type undoRecord struct {
	kind  undoKind
	head  domain.BlockPosition
	chain []DataBlock
	index *indexing.Index
	node  *indexing.IndexNode
}

// Snapshot is a unit of work with exclusive (write) or shared (read) access
// to one collection. Write snapshots record undo entries so a failed batch
// rolls back completely, and flush dirty blocks to the WAL at safepoints.
type Snapshot struct {
	engine *Engine
	col    *Collection
	mode   SnapshotMode

	undo  []undoRecord
	dirty map[domain.BlockPosition]struct{}
	stats SnapshotStats
	done  bool
}

// Collection returns the snapshot's collection.
func (s *Snapshot) Collection() *Collection { return s.col }

// Stats returns the work counters accumulated so far.
func (s *Snapshot) Stats() SnapshotStats { return s.stats }

func (s *Snapshot) writable() error {
	if s.done {
		return fmt.Errorf("snapshot already finished")
	}
	if s.mode != SnapshotWrite {
		return domain.NewInvalidArgument("snapshot is read-only")
	}
	return nil
}

func (s *Snapshot) markDirty(pos domain.BlockPosition) {
	if s.dirty == nil {
		s.dirty = make(map[domain.BlockPosition]struct{})
	}
	s.dirty[pos] = struct{}{}
}

// ReadBlock reassembles a document's bytes.
func (s *Snapshot) ReadBlock(pos domain.BlockPosition) ([]byte, error) {
	return s.col.data.Read(pos)
}

// InsertBlock stores bytes in a fresh block chain.
func (s *Snapshot) InsertBlock(data []byte) (*DataBlock, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	block := s.col.data.Insert(data)
	s.undo = append(s.undo, undoRecord{kind: undoBlockInsert, head: block.Position})
	s.markDirty(block.Position)
	s.stats.BlocksWritten++
	return block, nil
}

// UpdateBlock rewrites a document's bytes over its existing chain. The head
// position is stable so primary-key back-links stay valid.
func (s *Snapshot) UpdateBlock(pos domain.BlockPosition, data []byte) (*DataBlock, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	saved := s.col.data.chainCopy(pos)
	block, err := s.col.data.Update(pos, data)
	if err != nil {
		return nil, err
	}
	s.undo = append(s.undo, undoRecord{kind: undoBlockWrite, head: pos, chain: saved})
	s.markDirty(pos)
	s.stats.BlocksWritten++
	return block, nil
}

// FreeBlock releases a document's chain.
func (s *Snapshot) FreeBlock(pos domain.BlockPosition) error {
	if err := s.writable(); err != nil {
		return err
	}
	saved := s.col.data.chainCopy(pos)
	if err := s.col.data.Free(pos); err != nil {
		return err
	}
	s.undo = append(s.undo, undoRecord{kind: undoBlockFree, head: pos, chain: saved})
	s.markDirty(pos)
	return nil
}

// Find locates the node for an exact key in the given index, or nil.
func (s *Snapshot) Find(idx *indexing.Index, key domain.Value) *indexing.IndexNode {
	return s.col.indexes.Find(idx, key)
}

// NodeList enumerates the nodes sharing the given node's data block,
// excluding the primary-key slot unless includePK is set.
func (s *Snapshot) NodeList(node *indexing.IndexNode, includePK bool) []*indexing.IndexNode {
	return s.col.indexes.NodeList(node.DataBlock, includePK)
}

// AddIndex registers a secondary index definition. The addition rides the
// undo log: a rollback drops the definition again, and a commit marks the
// collection for checkpointing even when no nodes were built.
func (s *Snapshot) AddIndex(name string, p *expr.Path) (*indexing.Index, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	idx, err := s.col.indexes.Add(name, p)
	if err != nil {
		return nil, err
	}
	s.undo = append(s.undo, undoRecord{kind: undoIndexAdd, index: idx})
	return idx, nil
}

// AddNode inserts a new index entry linked to the given data block.
func (s *Snapshot) AddNode(idx *indexing.Index, key domain.Value, block domain.BlockPosition) (*indexing.IndexNode, error) {
	if err := s.writable(); err != nil {
		return nil, err
	}
	n := s.col.indexes.AddNode(idx, key, block)
	s.undo = append(s.undo, undoRecord{kind: undoNodeAdd, index: idx, node: n})
	s.stats.NodesAdded++
	return n, nil
}

// DeleteNode removes one physical index entry.
func (s *Snapshot) DeleteNode(idx *indexing.Index, node *indexing.IndexNode) error {
	if err := s.writable(); err != nil {
		return err
	}
	removed := s.col.indexes.DeleteNode(idx, node.Position)
	if removed == nil {
		return fmt.Errorf("index node %d not found in %s", node.Position, idx.Name)
	}
	s.undo = append(s.undo, undoRecord{kind: undoNodeDelete, index: idx, node: removed})
	s.stats.NodesDeleted++
	return nil
}

// Safepoint flushes the dirty block set to the WAL once it crosses the
// engine's threshold, bounding write-set growth during large batches. It is
// the only permitted suspension point inside a batch; calling it on a clean
// or below-threshold snapshot is cheap and does nothing.
func (s *Snapshot) Safepoint() error {
	if err := s.writable(); err != nil {
		return err
	}
	if len(s.dirty) < s.engine.safepointThreshold {
		return nil
	}
	if err := s.flushDirty(WALSafepoint); err != nil {
		return err
	}
	s.stats.Safepoints++
	return nil
}

func (s *Snapshot) flushDirty(entryType WALEntryType) error {
	blocks := make([]WALBlock, 0, len(s.dirty))
	for pos := range s.dirty {
		data, err := s.col.data.Read(pos)
		if err != nil {
			// block was freed after being dirtied; log its removal as empty
			data = nil
		}
		blocks = append(blocks, WALBlock{Position: uint64(pos), Data: data})
	}
	entry := &WALEntry{
		Type:       entryType,
		Collection: s.col.Name,
		Blocks:     blocks,
	}
	if err := s.engine.wal.WriteEntry(entry); err != nil {
		return err
	}
	s.dirty = nil
	return nil
}

// Commit makes the transaction's work durable: remaining dirty blocks plus a
// commit record go to the WAL, the collection is marked for checkpointing,
// and the collection lock is released.
func (s *Snapshot) Commit() error {
	if s.done {
		return fmt.Errorf("snapshot already finished")
	}
	if s.mode != SnapshotWrite {
		s.finish()
		return nil
	}
	if err := s.flushDirty(WALCommit); err != nil {
		return err
	}
	if len(s.undo) > 0 {
		s.col.dirty = true
	}
	s.undo = nil
	s.finish()
	return nil
}

// Rollback undoes every mutation in reverse order and releases the lock.
// Rolling back a finished snapshot is a no-op so it is safe to defer.
func (s *Snapshot) Rollback() {
	if s.done {
		return
	}
	for i := len(s.undo) - 1; i >= 0; i-- {
		rec := s.undo[i]
		switch rec.kind {
		case undoBlockWrite, undoBlockFree:
			s.col.data.restoreChain(rec.chain)
		case undoBlockInsert:
			// ignore double-free: the chain may already be gone
			_ = s.col.data.Free(rec.head)
		case undoNodeAdd:
			s.col.indexes.DeleteNode(rec.index, rec.node.Position)
		case undoNodeDelete:
			s.col.indexes.RestoreNode(rec.node)
		case undoIndexAdd:
			if err := s.col.indexes.Drop(rec.index); err != nil {
				log.Printf("ERROR: rollback could not drop index %s: %v", rec.index.Name, err)
			}
		}
	}
	s.undo = nil
	s.dirty = nil
	s.finish()
}

func (s *Snapshot) finish() {
	s.done = true
	if s.mode == SnapshotWrite {
		s.col.mu.Unlock()
	} else {
		s.col.mu.RUnlock()
	}
}
