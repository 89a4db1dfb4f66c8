// Package server exposes the router and session processes over HTTP.
//
// The router listens on a well-known port and holds the registry. Clients
// never talk to sessions directly: they call perform_notebook_request on the
// router, which resolves the notebook path and forwards the request to the
// session that serves it.
//
// A session server hosts one or more notebooks. It serves the request
// methods as JSON-RPC on "/" and accepts live frontends on "/comm".
package server
