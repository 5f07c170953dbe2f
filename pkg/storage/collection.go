package storage

import (
	"fmt"
	"sync"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/indexing"
)

// Collection holds one collection's data blocks and index set. Write access
// is exclusive per collection: a write snapshot owns the lock for its whole
// lifetime.
type Collection struct {
	Name string

	mu      sync.RWMutex
	indexes *indexing.IndexSet
	data    *blockStore

	dirty bool // has committed changes not yet checkpointed
}

func newCollection(name string) *Collection {
	return &Collection{
		Name:    name,
		indexes: indexing.NewIndexSet(),
		data:    newBlockStore(),
	}
}

// Indexes exposes the collection's index set. Mutations must go through a
// write snapshot.
func (c *Collection) Indexes() *indexing.IndexSet { return c.indexes }

// DocumentCount returns the number of live documents.
func (c *Collection) DocumentCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indexes.PrimaryKey().Len()
}

// loadDocument rebuilds the stored form of one document outside any
// transaction; used when reloading committed state from the data file.
func (c *Collection) loadDocument(doc *domain.Document) error {
	id, ok := doc.ID()
	if !ok || id.IsNull() {
		return fmt.Errorf("stored document without %s in collection %s", domain.IDField, c.Name)
	}
	raw, err := doc.Marshal()
	if err != nil {
		return err
	}
	block := c.data.Insert(raw)
	pk := c.indexes.PrimaryKey()
	if c.indexes.Find(pk, id) != nil {
		return domain.NewDuplicateKey(id.String())
	}
	c.indexes.AddNode(pk, id, block.Position)
	for _, idx := range c.indexes.Secondary() {
		for _, key := range idx.Keys(doc) {
			c.indexes.AddNode(idx, key, block.Position)
		}
	}
	return nil
}
