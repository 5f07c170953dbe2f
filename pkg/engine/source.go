package engine

import "github.com/mattbab/LiteDB/pkg/domain"

// DocumentSource feeds documents to a batch operation one at a time, so a
// caller can stream from disk or a network reader without materializing
// the whole batch.
//
//	for src.Next() {
//	    doc := src.Document()
//	    ...
//	}
//	if err := src.Err(); err != nil { ... }
type DocumentSource interface {
	// Next advances to the next document, returning false when the
	// sequence is exhausted or failed.
	Next() bool
	// Document returns the current document. Only valid after a true Next.
	Document() *domain.Document
	// Err returns the error that terminated the sequence, if any.
	Err() error
}

type sliceSource struct {
	docs []*domain.Document
	pos  int
}

// NewSliceSource wraps an in-memory batch as a DocumentSource.
func NewSliceSource(docs ...*domain.Document) DocumentSource {
	return &sliceSource{docs: docs, pos: -1}
}

func (s *sliceSource) Next() bool {
	if s.pos+1 >= len(s.docs) {
		return false
	}
	s.pos++
	return true
}

func (s *sliceSource) Document() *domain.Document { return s.docs[s.pos] }

func (s *sliceSource) Err() error { return nil }
