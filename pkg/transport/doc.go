// Package transport carries register messages over TCP.
//
// Every message is a CBOR-encoded wire.Request or wire.Response in a frame
// with a 4-byte big-endian length prefix:
//
//	┌────────────────────────────────┐
//	│   wire.Request / wire.Response │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│             TCP                │
//	└────────────────────────────────┘
//
// Client implements bus.Client, so hardware modules can run against a remote
// register file exactly as against a local one. Server exposes any bus.Client
// backend to remote clients.
//
// A client has at most one request in flight. Each call has a deadline; a
// call that fails on the connection closes it and the next call dials again.
// Failed calls are never retried.
package transport
