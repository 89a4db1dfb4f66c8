// Package journal records every sync run in a SQLite database.
//
// The journal is an audit log, not document storage: it holds one row per
// sync with its outcome, opcode counts and the number of primitive commands
// sent, so that "what happened to my notebook at 14:03" has an answer after
// the session is gone. The notebook itself is never written here.
//
// # Database Configuration
//
//   - WAL mode: concurrent readers (nbsync history) during session writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Schema changes are applied through PRAGMA user_version migrations.
//
// Run IDs are UUIDv7 by default, so ordering by id and by start time agree.
package journal
