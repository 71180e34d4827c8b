// Package podcast follows server-side podcast generation jobs.
//
// The backend owns job status. This package creates and retries jobs, polls
// active ones on a fixed interval until they reach COMPLETED or FAILED, and
// keeps a per-book view of the job list in which a retried job may carry a
// short-lived optimistic PROCESSING hint until the next authoritative read
// replaces it.
package podcast
