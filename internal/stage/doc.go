// Package stage provides the two runner shapes pipeline stages are built
// from: the ingest shape (enumerate, dedup, push) and the batch shape
// (drain, one external operation for the whole batch, commit forward or
// leave in place).
package stage
