// Package importer registers batches of book files with the library.
//
// A run deduplicates each file against a snapshot of the existing library,
// classifies it by MIME type, then parses, creates and indexes new books one
// file at a time, reporting fine-grained progress as it goes.
//
// The run itself (Pipeline) only ever talks to its caller through Message
// values. The Coordinator either runs it inline or hands it to a Worker, an
// isolated goroutine reachable only through byte-encoded messages; both paths
// share the same message vocabulary, so the Coordinator does not care where
// the work executes.
package importer
