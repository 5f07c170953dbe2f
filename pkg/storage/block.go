package storage

import (
	"fmt"

	"github.com/mattbab/LiteDB/pkg/domain"
)

// MaxBlockSize is the payload capacity of a single data block. Documents
// larger than this are stored as a chain of linked blocks.
const MaxBlockSize = 4096

// DataBlock holds one fragment of a document's serialized bytes. The head
// block's position is stable for the life of the document so index nodes can
// keep their back-links across rewrites.
type DataBlock struct {
	Position domain.BlockPosition
	Data     []byte
	Next     domain.BlockPosition
}

type blockStore struct {
	blocks map[domain.BlockPosition]*DataBlock
	next   uint64
}

func newBlockStore() *blockStore {
	return &blockStore{blocks: make(map[domain.BlockPosition]*DataBlock)}
}

func (bs *blockStore) alloc() *DataBlock {
	bs.next++
	b := &DataBlock{Position: domain.BlockPosition(bs.next)}
	bs.blocks[b.Position] = b
	return b
}

// Insert stores the bytes in a fresh chain and returns the head block.
func (bs *blockStore) Insert(data []byte) *DataBlock {
	head := bs.alloc()
	bs.fill(head, data)
	return head
}

// Update rewrites the document bytes over the existing chain. The head block
// is reused in place; tail fragments are reused, extended, or freed as the
// new size requires.
func (bs *blockStore) Update(pos domain.BlockPosition, data []byte) (*DataBlock, error) {
	head, ok := bs.blocks[pos]
	if !ok {
		return nil, fmt.Errorf("data block %d not found", pos)
	}
	bs.fill(head, data)
	return head, nil
}

func (bs *blockStore) fill(head *DataBlock, data []byte) {
	cur := head
	for {
		n := len(data)
		if n > MaxBlockSize {
			n = MaxBlockSize
		}
		cur.Data = append(cur.Data[:0], data[:n]...)
		data = data[n:]
		if len(data) == 0 {
			break
		}
		if cur.Next != 0 {
			cur = bs.blocks[cur.Next]
		} else {
			next := bs.alloc()
			cur.Next = next.Position
			cur = next
		}
	}
	// free surplus fragments from a previously longer chain
	surplus := cur.Next
	cur.Next = 0
	for surplus != 0 {
		b := bs.blocks[surplus]
		delete(bs.blocks, surplus)
		surplus = b.Next
	}
}

// Read reassembles the document bytes from the chain at pos.
func (bs *blockStore) Read(pos domain.BlockPosition) ([]byte, error) {
	b, ok := bs.blocks[pos]
	if !ok {
		return nil, fmt.Errorf("data block %d not found", pos)
	}
	out := make([]byte, 0, len(b.Data))
	for {
		out = append(out, b.Data...)
		if b.Next == 0 {
			return out, nil
		}
		b = bs.blocks[b.Next]
	}
}

// Free releases the whole chain at pos.
func (bs *blockStore) Free(pos domain.BlockPosition) error {
	b, ok := bs.blocks[pos]
	if !ok {
		return fmt.Errorf("data block %d not found", pos)
	}
	for {
		delete(bs.blocks, b.Position)
		if b.Next == 0 {
			return nil
		}
		b = bs.blocks[b.Next]
	}
}

// Len returns the number of live blocks across all chains.
func (bs *blockStore) Len() int { return len(bs.blocks) }

// chainCopy deep-copies the chain at pos so a transaction can restore it on
// rollback. Returns nil when the position is unknown.
func (bs *blockStore) chainCopy(pos domain.BlockPosition) []DataBlock {
	b, ok := bs.blocks[pos]
	if !ok {
		return nil
	}
	var out []DataBlock
	for {
		c := DataBlock{Position: b.Position, Next: b.Next}
		c.Data = append([]byte(nil), b.Data...)
		out = append(out, c)
		if b.Next == 0 {
			return out
		}
		b = bs.blocks[b.Next]
	}
}

// restoreChain puts a saved chain back, discarding whatever chain currently
// hangs off the saved head.
func (bs *blockStore) restoreChain(saved []DataBlock) {
	if len(saved) == 0 {
		return
	}
	if cur, ok := bs.blocks[saved[0].Position]; ok {
		for {
			delete(bs.blocks, cur.Position)
			if cur.Next == 0 {
				break
			}
			cur = bs.blocks[cur.Next]
		}
	}
	for i := range saved {
		b := saved[i]
		restored := &DataBlock{Position: b.Position, Next: b.Next}
		restored.Data = append([]byte(nil), b.Data...)
		bs.blocks[restored.Position] = restored
	}
}
