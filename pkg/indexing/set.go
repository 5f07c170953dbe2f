package indexing

import (
	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
)

// Stats counts physical node mutations, mainly so tests can observe that an
// update touched exactly the entries it had to.
type Stats struct {
	NodesAdded   int64
	NodesDeleted int64
}

// IndexSet owns every index slot of one collection plus the back-reference
// metadata linking data blocks to the nodes that point at them.
type IndexSet struct {
	indexes  []*Index
	byName   map[string]*Index
	backRefs map[domain.BlockPosition][]domain.NodePosition
	nextNode uint64
	stats    Stats
}

// NewIndexSet creates the index set for a collection, with the primary-key
// index installed at slot 0 over the _id field.
func NewIndexSet() *IndexSet {
	s := &IndexSet{
		byName:   make(map[string]*Index),
		backRefs: make(map[domain.BlockPosition][]domain.NodePosition),
	}
	pk := newIndex(PrimaryKeySlot, domain.IDField, expr.MustPath("$."+domain.IDField))
	s.indexes = append(s.indexes, pk)
	s.byName[pk.Name] = pk
	return s
}

// PrimaryKey returns the slot-0 index.
func (s *IndexSet) PrimaryKey() *Index { return s.indexes[PrimaryKeySlot] }

// Secondary returns the secondary indexes in slot (definition) order.
func (s *IndexSet) Secondary() []*Index { return s.indexes[1:] }

// ByName returns the index with the given name, or nil.
func (s *IndexSet) ByName(name string) *Index { return s.byName[name] }

// BySlot returns the index at the given slot, or nil.
func (s *IndexSet) BySlot(slot int) *Index {
	if slot < 0 || slot >= len(s.indexes) {
		return nil
	}
	return s.indexes[slot]
}

// Names returns every index name in slot order.
func (s *IndexSet) Names() []string {
	out := make([]string, len(s.indexes))
	for i, idx := range s.indexes {
		out[i] = idx.Name
	}
	return out
}

// Stats returns a copy of the mutation counters.
func (s *IndexSet) Stats() Stats { return s.stats }

// Add defines a new secondary index. The caller is responsible for building
// nodes for documents already stored.
func (s *IndexSet) Add(name string, p *expr.Path) (*Index, error) {
	if _, exists := s.byName[name]; exists {
		return nil, domain.NewIndexExists(name)
	}
	idx := newIndex(len(s.indexes), name, p)
	s.indexes = append(s.indexes, idx)
	s.byName[name] = idx
	return idx, nil
}

// Drop removes an index definition with whatever nodes it still holds. Only
// the highest slot can be dropped; earlier slots are pinned by the slot
// numbers baked into existing nodes.
func (s *IndexSet) Drop(idx *Index) error {
	if idx.Slot == PrimaryKeySlot {
		return domain.NewInvalidArgument("cannot drop the primary-key index")
	}
	if idx.Slot != len(s.indexes)-1 {
		return domain.NewInvalidArgument("only the most recently added index can be dropped")
	}
	positions := make([]domain.NodePosition, 0, len(idx.nodes))
	for pos := range idx.nodes {
		positions = append(positions, pos)
	}
	for _, pos := range positions {
		s.DeleteNode(idx, pos)
	}
	s.indexes = s.indexes[:idx.Slot]
	delete(s.byName, idx.Name)
	return nil
}

// Find locates the first node with exactly the given key, or nil. This is an
// exact-match lookup, not a range scan.
func (s *IndexSet) Find(idx *Index, key domain.Value) *IndexNode {
	bucket := idx.byKey[string(key.CollationKey())]
	if len(bucket) == 0 {
		return nil
	}
	return bucket[0]
}

// AddNode inserts a new index entry under the given data block position and
// links it back to the block.
func (s *IndexSet) AddNode(idx *Index, key domain.Value, block domain.BlockPosition) *IndexNode {
	s.nextNode++
	n := &IndexNode{
		Position:  domain.NodePosition(s.nextNode),
		Slot:      idx.Slot,
		Key:       key,
		DataBlock: block,
		keyRaw:    string(key.CollationKey()),
	}
	idx.attach(n)
	s.backRefs[block] = append(s.backRefs[block], n.Position)
	s.stats.NodesAdded++
	return n
}

// DeleteNode removes one physical index entry and its back-reference,
// returning the removed node (nil when the position is unknown).
func (s *IndexSet) DeleteNode(idx *Index, pos domain.NodePosition) *IndexNode {
	n := idx.detach(pos)
	if n == nil {
		return nil
	}
	refs := s.backRefs[n.DataBlock]
	for i, ref := range refs {
		if ref == pos {
			refs = append(refs[:i], refs[i+1:]...)
			break
		}
	}
	if len(refs) == 0 {
		delete(s.backRefs, n.DataBlock)
	} else {
		s.backRefs[n.DataBlock] = refs
	}
	s.stats.NodesDeleted++
	return n
}

// RestoreNode re-attaches a previously deleted node at its original position;
// used by transaction rollback.
func (s *IndexSet) RestoreNode(n *IndexNode) {
	idx := s.indexes[n.Slot]
	idx.attach(n)
	s.backRefs[n.DataBlock] = append(s.backRefs[n.DataBlock], n.Position)
}

// NodeList enumerates every node currently linked to the given data block,
// in slot order, excluding the primary-key slot unless includePK is set.
func (s *IndexSet) NodeList(block domain.BlockPosition, includePK bool) []*IndexNode {
	refs := s.backRefs[block]
	out := make([]*IndexNode, 0, len(refs))
	for _, idx := range s.indexes {
		if idx.Slot == PrimaryKeySlot && !includePK {
			continue
		}
		for _, pos := range refs {
			if n, ok := idx.nodes[pos]; ok {
				out = append(out, n)
			}
		}
	}
	return out
}
