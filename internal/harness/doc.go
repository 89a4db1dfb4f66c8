// Package harness runs sync scenarios end to end and compares their outcome
// against golden snapshots.
//
// A scenario names a live notebook, an edited percent script and the
// properties the sync must have:
//
//	name: reorder
//	description: "Moving a cell keeps its output"
//	matcher:
//	  threshold: 0.6
//	  scorer: ratio
//	current:
//	  - source: "x = 1; x"
//	    output: "1"
//	  - kind: markdown
//	    source: "# Notes"
//	updated: |
//	  # %%
//	  x = 1; x
//	assertions:
//	  - type: ops
//	    ops: { equal: 1, delete: 1 }
//	  - type: output
//	    cell: 0
//	    text: "1"
//
// # Assertion Types
//
//   - ops: the opcode counts for every listed kind match exactly
//   - command_contains: a command with the given string form was sent
//   - command_count: exactly count commands were sent
//   - output: the final cell at index carries text, or no output when text is omitted
//
// # Deterministic Runs
//
// Each scenario runs against a fresh in-memory journal with sequential run
// ids and a stepping clock, so snapshots are byte-for-byte reproducible.
// Regenerate goldens with:
//
//	go test ./internal/harness -update
package harness
