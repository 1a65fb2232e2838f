// Package queue implements the file-backed job queue that moves work through
// the pipeline. Each pending job is a single JSON record file named by its id
// under the queue's root directory; the directory listing is the only index.
//
// A queue's identity is its root path and distinct queues never share a root.
// The store assumes at most one writer process per root at any instant; it
// performs no locking itself, callers enforce that precondition (the CLI
// holds an advisory lock for the duration of a stage invocation).
package queue
