// Package registry maps live notebook paths to the session endpoints that
// serve them.
//
// The router owns one Registry. Sessions announce themselves with Register
// and withdraw with Unregister; clients resolve an edited file path with
// Lookup.
//
// MATCHING:
//
// A requested path rarely equals a registered path byte for byte: the
// client edits name.sync.py while the session serves name.sync.ipynb, and
// the two may live under different mount points. Lookup therefore:
//  1. rewrites the editable extension to the live extension
//  2. splits both paths into components (absolute paths keep a "/" root)
//  3. scores each registered path by the length of the common tail run,
//     stopping at the first mismatching component
//
// The unique highest score wins. A zero score everywhere is a NotFoundError;
// a tie at the top is an AmbiguousTargetError. The registry never guesses.
package registry
