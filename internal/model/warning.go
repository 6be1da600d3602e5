package model

import "fmt"

// ParseWarning describes a row block that was skipped because it could
// not be mapped to a PlayerRecord. Warnings are counted, never fatal.
type ParseWarning struct {
	// Block is the zero-based index of the row block in its document.
	Block int

	// Cells is the number of cells found in the block.
	Cells int

	// Reason is a short description of the problem.
	Reason string
}

// String implements fmt.Stringer.
func (w ParseWarning) String() string {
	return fmt.Sprintf("row block %d: %s (%d cells)", w.Block, w.Reason, w.Cells)
}
