package engine

import (
	"github.com/mattbab/LiteDB/pkg/domain"
	"github.com/mattbab/LiteDB/pkg/expr"
	"github.com/mattbab/LiteDB/pkg/indexing"
	"github.com/mattbab/LiteDB/pkg/storage"
)

// UpdateByQuery rewrites every document matching where by evaluating modify
// against it. In merge mode the produced document is overlaid onto the
// stored one, field by field; in replace mode it stands in for the stored
// document wholesale. Either way the stored primary key survives: a produced
// document without an _id inherits the original's, and one carrying a
// different _id fails the whole batch.
func (e *Engine) UpdateByQuery(collName string, modify expr.Expression, mode domain.UpdateMode, where expr.Filter) (int, error) {
	if collName == "" {
		return 0, domain.NewInvalidArgument("collection name must not be empty")
	}
	if modify == nil {
		return 0, domain.NewInvalidArgument("modify expression must not be nil")
	}
	if where == nil {
		where = expr.All()
	}

	snap, err := e.storage.OpenSnapshot(storage.SnapshotWrite, collName, false)
	if err != nil {
		return 0, err
	}
	defer snap.Rollback()

	// pin the target set up front so documents moved into or out of the
	// match set by our own rewrites are not revisited
	ids, err := e.matchingIDs(snap, where)
	if err != nil {
		return 0, err
	}

	count, err := e.updateLoop(snap, &queryModifySource{
		engine: e,
		snap:   snap,
		modify: modify,
		mode:   mode,
		ids:    ids,
		pos:    -1,
	})
	if err != nil {
		return 0, err
	}
	if err := snap.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

func (e *Engine) matchingIDs(snap *storage.Snapshot, where expr.Filter) ([]domain.Value, error) {
	var ids []domain.Value
	var scanErr error
	snap.Collection().Indexes().PrimaryKey().Walk(func(pkNode *indexing.IndexNode) bool {
		doc, err := e.readDocument(snap, pkNode)
		if err != nil {
			scanErr = err
			return false
		}
		if where.Match(doc) {
			ids = append(ids, pkNode.Key)
		}
		return true
	})
	return ids, scanErr
}

// queryModifySource lazily turns each pinned primary key back into the
// rewritten document the update loop should store. Keys whose document was
// deleted underneath us are skipped.
type queryModifySource struct {
	engine *Engine
	snap   *storage.Snapshot
	modify expr.Expression
	mode   domain.UpdateMode
	ids    []domain.Value
	pos    int
	doc    *domain.Document
	err    error
}

func (q *queryModifySource) Next() bool {
	if q.err != nil {
		return false
	}
	for q.pos+1 < len(q.ids) {
		q.pos++
		doc, ok, err := q.rewrite(q.ids[q.pos])
		if err != nil {
			q.err = err
			return false
		}
		if ok {
			q.doc = doc
			return true
		}
	}
	return false
}

func (q *queryModifySource) Document() *domain.Document { return q.doc }

func (q *queryModifySource) Err() error { return q.err }

func (q *queryModifySource) rewrite(id domain.Value) (*domain.Document, bool, error) {
	col := q.snap.Collection()
	pkNode := q.snap.Find(col.Indexes().PrimaryKey(), id)
	if pkNode == nil {
		return nil, false, nil
	}
	original, err := q.engine.readDocument(q.snap, pkNode)
	if err != nil {
		return nil, false, err
	}

	produced := q.modify.Execute(original)
	if len(produced) == 0 {
		return nil, false, domain.NewInvalidArgument("modify expression produced no value")
	}
	result, err := produced[0].AsDocument()
	if err != nil {
		return nil, false, domain.NewInvalidArgument("modify expression must produce a document")
	}

	// only an absent _id inherits the original; any explicit value, null
	// included, must match the captured key
	if newID, ok := result.ID(); ok && !newID.Equal(id) {
		return nil, false, domain.NewInvalidUpdateField(domain.IDField)
	}

	var next *domain.Document
	switch q.mode {
	case domain.UpdateModeReplace:
		next = result.Clone()
	default:
		next = original.Merge(result)
	}
	next.Set(domain.IDField, id)
	return next, true, nil
}
