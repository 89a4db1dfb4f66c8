// Package session drives one live notebook.
//
// A Session owns the control channel to its live document and serializes
// syncs against it. Sync runs the whole pipeline under the session lock:
//
//  1. start_sync
//  2. read the current snapshot from the live side
//  3. reconcile.Align, then Matcher.Recover
//  4. reconcile.Apply, sending each primitive command as it is produced
//  5. finish_sync, then wait up to AckTimeout for sync_complete
//
// A missed acknowledgement is soft: the lock is released, a warning is
// logged and Sync returns the result marked incomplete together with an
// ApplyTimeoutError. Commands already sent are not rolled back; the next
// sync starts from a fresh snapshot and converges.
//
// Manager keeps one Session per notebook path so syncs against different
// notebooks never share a lock.
package session
