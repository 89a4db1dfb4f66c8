// Package reconcile computes and applies the edit script that turns the
// live ("current") notebook into the externally edited ("updated") one.
//
// The pipeline has three stages, each a plain function over immutable
// snapshots:
//
//  1. Align diffs the two signature sequences into an ordered opcode list
//     (Equal, Insert, Delete, Replace) that partitions both notebooks.
//  2. Matcher.Recover appends CopyOutput annotations so that a cell which was
//     only lightly edited keeps the output of the cell it replaced.
//  3. Apply folds the opcodes into primitive single-cell commands (insert,
//     delete, replace, attach_output) while tracking the net index shift
//     introduced by earlier inserts and deletes.
//
// Align and Recover are total and never fail. Apply fails only when it is
// handed an opcode it does not understand or when the emit callback fails.
//
// # Net shift
//
// The live document only supports one structural edit at a time. After an
// insert of k cells every later current-side index has moved k places to the
// right, so Apply carries a single integer shift such that the physical index
// of current cell i is i+shift at the moment its opcode is processed.
package reconcile
