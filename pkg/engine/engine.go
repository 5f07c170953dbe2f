package engine

import (
	"log"

	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
	"github.com/mattbab/LiteDB/pkg/indexing"
	"github.com/mattbab/LiteDB/pkg/storage"
)

// Engine is the public face of the database: document operations over the
// storage engine's collections, snapshots, and indexes.
type Engine struct {
	storage *storage.Engine
}

// New wraps a storage engine.
func New(st *storage.Engine) *Engine {
	return &Engine{storage: st}
}

// Storage exposes the underlying storage engine.
func (e *Engine) Storage() *storage.Engine { return e.storage }

// Close shuts the underlying storage engine down.
func (e *Engine) Close() error { return e.storage.Close() }

// CreateCollection registers a collection; creating an existing one is a
// no-op.
func (e *Engine) CreateCollection(name string) error {
	_, err := e.storage.CreateCollection(name)
	return err
}

// EnsureIndex defines a secondary index over the given path (e.g. "$.age" or
// "$.tags[*]") and builds nodes for every document already stored. Ensuring
// an index that already exists is a no-op.
func (e *Engine) EnsureIndex(collName, name, pathSpec string) error {
	if name == "" {
		return domain.NewInvalidArgument("index name must not be empty")
	}
	p, err := expr.NewPath(pathSpec)
	if err != nil {
		return err
	}

	snap, err := e.storage.OpenSnapshot(storage.SnapshotWrite, collName, true)
	if err != nil {
		return err
	}
	defer snap.Rollback()

	col := snap.Collection()
	if col.Indexes().ByName(name) != nil {
		return snap.Commit()
	}
	idx, err := snap.AddIndex(name, p)
	if err != nil {
		return err
	}

	var buildErr error
	col.Indexes().PrimaryKey().Walk(func(pkNode *indexing.IndexNode) bool {
		doc, err := e.readDocument(snap, pkNode)
		if err != nil {
			buildErr = err
			return false
		}
		for _, key := range idx.Keys(doc) {
			if _, err := snap.AddNode(idx, key, pkNode.DataBlock); err != nil {
				buildErr = err
				return false
			}
		}
		return true
	})
	if buildErr != nil {
		return buildErr
	}
	log.Printf("INFO: ensured index %q on collection %q over %s", name, collName, p)
	return snap.Commit()
}

// Insert stores the documents in one transaction, generating an ObjectID for
// any document without an _id, and returns the number inserted.
func (e *Engine) Insert(collName string, docs ...*domain.Document) (int, error) {
	if collName == "" {
		return 0, domain.NewInvalidArgument("collection name must not be empty")
	}
	for _, doc := range docs {
		if doc == nil {
			return 0, domain.NewInvalidArgument("document must not be nil")
		}
	}

	snap, err := e.storage.OpenSnapshot(storage.SnapshotWrite, collName, true)
	if err != nil {
		return 0, err
	}
	defer snap.Rollback()

	for _, doc := range docs {
		if err := snap.Safepoint(); err != nil {
			return 0, err
		}
		if err := e.insertDocument(snap, doc); err != nil {
			return 0, err
		}
	}
	if err := snap.Commit(); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (e *Engine) insertDocument(snap *storage.Snapshot, doc *domain.Document) error {
	if id, ok := doc.ID(); !ok || id.IsNull() {
		doc.Set(domain.IDField, domain.ObjectIDValue(domain.NewObjectID()))
	}
	id, err := validateDocumentID(doc)
	if err != nil {
		return err
	}

	col := snap.Collection()
	pk := col.Indexes().PrimaryKey()
	if snap.Find(pk, id) != nil {
		return domain.NewDuplicateKey(id.String())
	}

	raw, err := doc.Marshal()
	if err != nil {
		return err
	}
	block, err := snap.InsertBlock(raw)
	if err != nil {
		return err
	}
	if _, err := snap.AddNode(pk, id, block.Position); err != nil {
		return err
	}
	for _, idx := range col.Indexes().Secondary() {
		for _, key := range idx.Keys(doc) {
			if _, err := snap.AddNode(idx, key, block.Position); err != nil {
				return err
			}
		}
	}
	return nil
}

// FindByID returns the stored document with the given primary key, or a
// not-found error.
func (e *Engine) FindByID(collName string, id domain.Value) (*domain.Document, error) {
	snap, err := e.storage.OpenSnapshot(storage.SnapshotRead, collName, false)
	if err != nil {
		return nil, err
	}
	defer snap.Rollback()

	pkNode := snap.Find(snap.Collection().Indexes().PrimaryKey(), id)
	if pkNode == nil {
		return nil, domain.NewNotFound("document " + id.String() + " not found in " + collName)
	}
	return e.readDocument(snap, pkNode)
}

// Find returns every document matching the filter in primary-key order.
// A nil filter matches everything.
func (e *Engine) Find(collName string, filter expr.Filter) ([]*domain.Document, error) {
	snap, err := e.storage.OpenSnapshot(storage.SnapshotRead, collName, false)
	if err != nil {
		return nil, err
	}
	defer snap.Rollback()
	return e.scan(snap, filter)
}

// Count returns the number of documents matching the filter.
func (e *Engine) Count(collName string, filter expr.Filter) (int, error) {
	docs, err := e.Find(collName, filter)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// DeleteByID removes one document and every index node linked to its data
// block. It returns false when no document carries the given key.
func (e *Engine) DeleteByID(collName string, id domain.Value) (bool, error) {
	snap, err := e.storage.OpenSnapshot(storage.SnapshotWrite, collName, false)
	if err != nil {
		return false, err
	}
	defer snap.Rollback()

	col := snap.Collection()
	pkNode := snap.Find(col.Indexes().PrimaryKey(), id)
	if pkNode == nil {
		if err := snap.Commit(); err != nil {
			return false, err
		}
		return false, nil
	}

	for _, node := range snap.NodeList(pkNode, true) {
		idx := col.Indexes().BySlot(node.Slot)
		if err := snap.DeleteNode(idx, node); err != nil {
			return false, err
		}
	}
	if err := snap.FreeBlock(pkNode.DataBlock); err != nil {
		return false, err
	}
	if err := snap.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) scan(snap *storage.Snapshot, filter expr.Filter) ([]*domain.Document, error) {
	var docs []*domain.Document
	var scanErr error
	snap.Collection().Indexes().PrimaryKey().Walk(func(pkNode *indexing.IndexNode) bool {
		doc, err := e.readDocument(snap, pkNode)
		if err != nil {
			scanErr = err
			return false
		}
		if filter == nil || filter.Match(doc) {
			docs = append(docs, doc)
		}
		return true
	})
	return docs, scanErr
}

func (e *Engine) readDocument(snap *storage.Snapshot, pkNode *indexing.IndexNode) (*domain.Document, error) {
	raw, err := snap.ReadBlock(pkNode.DataBlock)
	if err != nil {
		return nil, err
	}
	return domain.UnmarshalDocument(raw)
}
