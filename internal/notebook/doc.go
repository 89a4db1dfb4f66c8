// Package notebook defines the immutable snapshot types shared by the
// reconciliation engine, the live document and the text-format parser.
//
// A Notebook is an ordered sequence of cells. Cell indices are positional:
// cells[i].Index == i always holds for a notebook built with New. Indices are
// recomputed whenever the sequence is reordered and never serve as identity.
//
// For reconciliation two cells are "the same" when their signatures match
// exactly. A signature covers the cell kind and the joined source only;
// outputs and external ids are deliberately not part of it.
package notebook
