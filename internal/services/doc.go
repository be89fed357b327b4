// Package services owns the handler catalog and built-in handlers.
//
// Ownership boundary:
// - handler name to factory mapping used by manifests
// - built-in handler state (scratch buffers, kv store)
// - handler-defined status codes
package services
