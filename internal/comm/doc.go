// Package comm is the control channel between a session server and the live
// document it drives.
//
// Frames are JSON Message envelopes over a websocket. The session side is a
// Conn, accepted on the session server's /comm endpoint; the live side is a
// Frontend, which dials in and applies edits to a livedoc.Document.
//
// A sync on the wire:
//
//	session -> live   start_sync
//	session -> live   get_cells
//	live -> session   cells
//	session -> live   insert_cell | delete_cells | replace_cell | attach_output ...
//	session -> live   finish_sync
//	live -> session   sync_complete
//
// Acknowledgement is the sync_complete frame. The session bounds how long it
// waits for it; the channel itself never times out a sync.
package comm
