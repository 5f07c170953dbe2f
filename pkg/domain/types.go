package domain

import "fmt"

// BlockPosition identifies the head of a document's data block chain.
// Zero is the empty position.
type BlockPosition uint64

// NodePosition identifies one physical index node. Zero is the empty position.
type NodePosition uint64

// UpdateMode selects how an expression-driven update combines the modify
// result with the stored document.
type UpdateMode int

const (
	// UpdateModeMerge overlays the modify result's fields onto the stored
	// document; modify-result fields win on conflict.
	UpdateModeMerge UpdateMode = iota
	// UpdateModeReplace discards all stored fields except identity and keeps
	// only the modify result.
	UpdateModeReplace
)

func (m UpdateMode) String() string {
	switch m {
	case UpdateModeMerge:
		return "merge"
	case UpdateModeReplace:
		return "replace"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseUpdateMode accepts the wire form used by the HTTP surface.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "merge", "":
		return UpdateModeMerge, nil
	case "replace":
		return UpdateModeReplace, nil
	default:
		return 0, NewInvalidArgument(fmt.Sprintf("unknown update mode %q", s))
	}
}
