// Package events provides a small in-process notification mechanism.
//
// The task registry emits a TaskEvent whenever an entry is added, updated or
// removed. Observers (a terminal renderer, a status endpoint) register a
// Handler with an Emitter and react without the registry knowing about them.
//
// The primary components are:
// - TaskEvent: a serialisable notification about one registry entry
// - Handler: interface for components that react to events
// - Emitter: interface for components that publish events
package events
