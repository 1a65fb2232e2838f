// Package workflow wires queues, external tools, and notifications into the
// pipeline stages the CLI invokes: fetch discovers new videos, captions and
// info submit queued batches as remote kernels, and analyze runs the
// transcript model over harvested captions.
package workflow
