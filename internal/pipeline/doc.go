// Package pipeline owns the message loop around a dispatch manager.
//
// Ownership boundary:
// - per-message dispatch, response capture and reset
// - dispatch metrics and dispatch log events
// - line-delimited input and tab-separated result output
package pipeline
