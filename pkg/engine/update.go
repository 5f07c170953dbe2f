package engine

import (
	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/indexing"
	"github.com/mattbab/LiteDB/pkg/storage"
)

// validateDocumentID extracts and validates the document's primary key.
// A missing or null _id, or one of the reserved min/max boundary values,
// is an invalid-data-type error.
func validateDocumentID(doc *domain.Document) (domain.Value, error) {
	id, ok := doc.ID()
	if !ok || id.IsNull() {
		return domain.Null(), domain.NewInvalidDataType(domain.IDField, "document must carry a non-null "+domain.IDField)
	}
	if id.IsSentinel() {
		return domain.Null(), domain.NewInvalidDataType(domain.IDField, id.String()+" is reserved for index boundaries")
	}
	return id, nil
}

// Update rewrites one stored document in place and re-syncs every secondary
// index. It returns false, without error, when no stored document carries the
// incoming document's primary key.
func (e *Engine) Update(collName string, doc *domain.Document) (bool, error) {
	count, err := e.UpdateAll(collName, NewSliceSource(doc))
	if err != nil {
		return false, err
	}
	return count == 1, nil
}

// UpdateAll rewrites a sequence of documents inside one transaction,
// yielding to the transaction's safepoint before each document, and returns
// the number of documents actually updated. Documents whose primary key has
// no stored match are silently skipped. Any other failure rolls the whole
// batch back.
func (e *Engine) UpdateAll(collName string, docs DocumentSource) (int, error) {
	if collName == "" {
		return 0, domain.NewInvalidArgument("collection name must not be empty")
	}
	if docs == nil {
		return 0, domain.NewInvalidArgument("document sequence must not be nil")
	}

	snap, err := e.storage.OpenSnapshot(storage.SnapshotWrite, collName, false)
	if err != nil {
		return 0, err
	}
	defer snap.Rollback()

	count, err := e.updateLoop(snap, docs)
	if err != nil {
		return 0, err
	}
	if err := snap.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) updateLoop(snap *storage.Snapshot, docs DocumentSource) (int, error) {
	count := 0
	for docs.Next() {
		if err := snap.Safepoint(); err != nil {
			return 0, err
		}
		doc := docs.Document()
		if doc == nil {
			return 0, domain.NewInvalidArgument("document must not be nil")
		}
		updated, err := e.updateDocument(snap, doc)
		if err != nil {
			return 0, err
		}
		if updated {
			count++
		}
	}
	if err := docs.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// updateDocument performs one in-place update: guard, data block rewrite,
// then the minimal index delta per secondary slot.
func (e *Engine) updateDocument(snap *storage.Snapshot, doc *domain.Document) (bool, error) {
	id, err := validateDocumentID(doc)
	if err != nil {
		return false, err
	}

	col := snap.Collection()
	pkNode := snap.Find(col.Indexes().PrimaryKey(), id)
	if pkNode == nil {
		// updating a nonexistent document is a benign skip
		return false, nil
	}

	raw, err := doc.Marshal()
	if err != nil {
		return false, err
	}
	block, err := snap.UpdateBlock(pkNode.DataBlock, raw)
	if err != nil {
		return false, err
	}

	// the primary-key slot is never touched here: its node already encodes
	// the immutable _id and its back-link stayed valid across the rewrite
	current := snap.NodeList(pkNode, false)
	bySlot := make(map[int][]*indexing.IndexNode)
	for _, node := range current {
		bySlot[node.Slot] = append(bySlot[node.Slot], node)
	}

	for _, idx := range col.Indexes().Secondary() {
		toDelete, toInsert := planIndexDelta(bySlot[idx.Slot], idx.Keys(doc))
		for _, node := range toDelete {
			if err := snap.DeleteNode(idx, node); err != nil {
				return false, err
			}
		}
		for _, key := range toInsert {
			if _, err := snap.AddNode(idx, key, block.Position); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// planIndexDelta compares the nodes currently attached under one index slot
// with the freshly produced key set and returns the minimal delta: nodes
// whose key is no longer produced, and keys with no attached node. Equality
// is value equality via the collation key. A key present on both sides
// yields no work at all.
func planIndexDelta(current []*indexing.IndexNode, keys []domain.Value) ([]*indexing.IndexNode, []domain.Value) {
	newKeys := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		newKeys[string(key.CollationKey())] = struct{}{}
	}
	existing := make(map[string]struct{}, len(current))

	var toDelete []*indexing.IndexNode
	for _, node := range current {
		if _, keep := newKeys[node.KeyRaw()]; keep {
			existing[node.KeyRaw()] = struct{}{}
		} else {
			toDelete = append(toDelete, node)
		}
	}
	var toInsert []domain.Value
	for _, key := range keys {
		if _, have := existing[string(key.CollationKey())]; !have {
			toInsert = append(toInsert, key)
		}
	}
	return toDelete, toInsert
}
