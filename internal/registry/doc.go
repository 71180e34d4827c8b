// Package registry holds the process-wide set of in-flight, user-visible
// tasks. Long-running operations (imports, podcast polls, streamed replies)
// add a task when they start, update its progress as they go, and remove it
// when they finish; a single indicator can then reflect any of them.
//
// The registry is pure state: no method performs I/O or blocks on anything
// other than the short internal write lock.
package registry
