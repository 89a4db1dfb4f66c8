package reconcile

import (
	"github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/nbsync/internal/notebook"
)

// Align returns the opcodes that turn current into updated.
//
// Whole cells are the atomic unit: two cells match only when their
// signatures are byte-identical. The result partitions [0, current.Len())
// and [0, updated.Len()) in order, without gaps or overlaps.
func Align(current, updated notebook.Notebook) []OpAction {
	if current.Len() == 0 && updated.Len() == 0 {
		return []OpAction{mustOp(OpEqual, Range{0, 0}, Range{0, 0})}
	}

	// autojunk would treat cells repeated in large notebooks as noise.
	m := difflib.NewMatcherWithJunk(current.Signatures(), updated.Signatures(), false, nil)

	codes := m.GetOpCodes()
	ops := make([]OpAction, 0, len(codes))
	for _, c := range codes {
		cur := Range{c.I1, c.I2}
		upd := Range{c.J1, c.J2}
		switch c.Tag {
		case 'e':
			ops = append(ops, mustOp(OpEqual, cur, upd))
		case 'i':
			ops = append(ops, mustOp(OpInsert, cur, upd))
		case 'd':
			ops = append(ops, mustOp(OpDelete, cur, upd))
		case 'r':
			ops = append(ops, mustOp(OpReplace, cur, upd))
		}
	}
	return ops
}
