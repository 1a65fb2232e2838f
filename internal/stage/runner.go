package stage

import (
	"context"
	"fmt"
	"log/slog"

	"conveyor/internal/logging"
	"conveyor/internal/queue"
	"conveyor/internal/services"
)

// Result summarizes one stage invocation.
type Result struct {
	Processed int
	Skipped   int
	Failed    int
	Requeued  int
}

// Empty reports whether the invocation touched no jobs at all.
func (r Result) Empty() bool { return r == Result{} }

// SeenFunc reports whether an id has already entered the pipeline.
type SeenFunc func(id string) (bool, error)

// Ingest pushes payload into dest unless seen reports the id as already
// known. The returned flag is true when a new record was pushed.
func Ingest(dest *queue.Store, id string, payload queue.Payload, seen SeenFunc) (bool, error) {
	known, err := seen(id)
	if err != nil {
		return false, err
	}
	if known {
		return false, nil
	}
	if _, err := dest.Push(id, payload); err != nil {
		return false, err
	}
	return true, nil
}

// WorkFunc performs the single external operation for a drained batch and
// returns the annotation payload attached to every committed record.
type WorkFunc func(ctx context.Context, batch []queue.Record) (queue.Payload, error)

// BatchRunner drains up to BatchSize records from Source, hands them to Work
// as one unit, and on success commits each record to Dest annotated under
// AnnotationKey.
//
// The drain is non-destructive and each commit pushes to Dest before
// removing from Source, so a crash at any point duplicates a record at
// worst; the cross-queue dedup check absorbs duplicates, while a lost
// record could not be recovered. When Work fails nothing has moved: the
// batch simply stays queued, minus any stale annotation left behind by an
// earlier interrupted run.
type BatchRunner struct {
	Source        *queue.Store
	Dest          *queue.Store
	BatchSize     int
	AnnotationKey string
	Work          WorkFunc
	Logger        *slog.Logger
}

// Run executes one batch. An empty source returns an empty Result without
// invoking Work.
func (r *BatchRunner) Run(ctx context.Context) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := r.validate(); err != nil {
		return Result{}, err
	}

	batch, err := r.Source.Oldest(r.BatchSize)
	if err != nil {
		return Result{}, err
	}
	if len(batch) == 0 {
		return Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	annotation, err := r.Work(ctx, batch)
	if err != nil {
		r.restore(batch, logger)
		return Result{Requeued: len(batch)}, err
	}

	committed := 0
	for _, rec := range batch {
		payload := rec.Payload.Clone()
		if payload == nil {
			payload = queue.Payload{}
		}
		payload[r.AnnotationKey] = annotation
		if _, err := r.Dest.Push(rec.ID, payload); err != nil {
			return Result{Processed: committed, Requeued: len(batch) - committed},
				fmt.Errorf("commit record %s: %w", rec.ID, err)
		}
		if _, _, err := r.Source.Remove(rec.ID); err != nil {
			// The record now sits in both queues. Dedup treats the copy
			// left behind as already seen, so log and keep going.
			logger.Warn("committed record not removed from source",
				logging.String(logging.FieldJobID, rec.ID),
				logging.Error(err))
		}
		committed++
	}
	return Result{Processed: committed}, nil
}

func (r *BatchRunner) validate() error {
	switch {
	case r.Source == nil:
		return services.Wrap(services.ErrConfiguration, "batch", "validate", "source queue is required", nil)
	case r.Dest == nil:
		return services.Wrap(services.ErrConfiguration, "batch", "validate", "destination queue is required", nil)
	case r.BatchSize <= 0:
		return services.Wrap(services.ErrConfiguration, "batch", "validate", "batch size must be positive", nil)
	case r.AnnotationKey == "":
		return services.Wrap(services.ErrConfiguration, "batch", "validate", "annotation key is required", nil)
	case r.Work == nil:
		return services.Wrap(services.ErrConfiguration, "batch", "validate", "work function is required", nil)
	}
	return nil
}

// restore strips a stale annotation from any drained record that carries
// one. Records never left the source queue, so in the common case this is a
// no-op; it only rewrites records duplicated by an earlier interrupted run.
func (r *BatchRunner) restore(batch []queue.Record, logger *slog.Logger) {
	for _, rec := range batch {
		if _, tagged := rec.Payload[r.AnnotationKey]; !tagged {
			continue
		}
		cleaned := rec.Payload.Clone()
		delete(cleaned, r.AnnotationKey)
		if _, err := r.Source.Push(rec.ID, cleaned); err != nil {
			logger.Error("restore record after failed batch",
				logging.String(logging.FieldJobID, rec.ID),
				logging.Error(err))
		}
	}
}
