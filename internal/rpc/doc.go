// Package rpc owns the dispatch engine core.
//
// Ownership boundary:
// - service registry (fixed capacity, hashed slots)
// - message decoding and schema validation
// - argument binding and extraction
// - dispatch and per-message lifecycle reset
//
// Wire grammar:
//
//	<ServiceId:IDLen><separator><Arg1><delim><Arg2>...<ArgK>[NUL]
//
// A Manager holds exactly one live Command. Callers dispatch one message,
// consume the response, then Reset before the next message. Bindings are
// spans into the caller's message buffer and must not outlive it.
//
// The successful dispatch path does not allocate.
package rpc
