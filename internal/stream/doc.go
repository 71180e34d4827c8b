// Package stream consumes incrementally generated chat replies.
//
// Consume decodes a streamed body chunk by chunk and republishes the
// cumulative text after each chunk. ExistenceChecker resolves metadata of a
// chat that may not be readable yet, retrying "not found" with bounded
// exponential backoff. Session ties both together for one message.
package stream
