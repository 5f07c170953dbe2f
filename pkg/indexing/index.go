package indexing

import (
	"sort"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
)

// PrimaryKeySlot is the slot of every collection's primary-key index.
const PrimaryKeySlot = 0

// IndexNode is one physical index entry: one per (slot, key) pair currently
// linked to a document's data block.
type IndexNode struct {
	Position  domain.NodePosition
	Slot      int
	Key       domain.Value
	DataBlock domain.BlockPosition

	keyRaw string // collation key, cached for value-equality lookups
}

// KeyRaw returns the node key's collation encoding. Two nodes carry equal
// keys exactly when their KeyRaw values are equal.
func (n *IndexNode) KeyRaw() string { return n.keyRaw }

// Index is one index slot of a collection: the primary key at slot 0, or a
// secondary index with its key-producing path expression.
type Index struct {
	Slot int
	Name string
	Expr *expr.Path

	byKey map[string][]*IndexNode
	nodes map[domain.NodePosition]*IndexNode
}

func newIndex(slot int, name string, p *expr.Path) *Index {
	return &Index{
		Slot:  slot,
		Name:  name,
		Expr:  p,
		byKey: make(map[string][]*IndexNode),
		nodes: make(map[domain.NodePosition]*IndexNode),
	}
}

// Keys evaluates the index expression against a document and returns the key
// set it produces. Duplicate key values collapse to one entry: the key set
// per (document, index) is a set under collation-key equality.
func (idx *Index) Keys(doc *domain.Document) []domain.Value {
	produced := idx.Expr.Execute(doc)
	if len(produced) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(produced))
	keys := make([]domain.Value, 0, len(produced))
	for _, k := range produced {
		raw := string(k.CollationKey())
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// Len returns the number of nodes currently held by the index.
func (idx *Index) Len() int { return len(idx.nodes) }

// Walk visits every node in key order; nodes sharing a key are visited in
// insertion order. The callback returns false to stop early.
func (idx *Index) Walk(fn func(*IndexNode) bool) {
	raws := make([]string, 0, len(idx.byKey))
	for raw := range idx.byKey {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	for _, raw := range raws {
		for _, n := range idx.byKey[raw] {
			if !fn(n) {
				return
			}
		}
	}
}

func (idx *Index) attach(n *IndexNode) {
	idx.byKey[n.keyRaw] = append(idx.byKey[n.keyRaw], n)
	idx.nodes[n.Position] = n
}

func (idx *Index) detach(pos domain.NodePosition) *IndexNode {
	n, ok := idx.nodes[pos]
	if !ok {
		return nil
	}
	delete(idx.nodes, pos)
	bucket := idx.byKey[n.keyRaw]
	for i, cand := range bucket {
		if cand.Position == pos {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(idx.byKey, n.keyRaw)
	} else {
		idx.byKey[n.keyRaw] = bucket
	}
	return n
}
