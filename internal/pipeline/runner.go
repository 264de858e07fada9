package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/amunamun/raster-to-graph/internal/canonical"
	"github.com/amunamun/raster-to-graph/internal/ctxlog"
	"github.com/amunamun/raster-to-graph/internal/dataset"
	"github.com/amunamun/raster-to-graph/internal/geom"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
	"github.com/amunamun/raster-to-graph/internal/imgmeta"
	"github.com/amunamun/raster-to-graph/internal/tracking"
)

// Summary aggregates the outcome of one batch run.
type Summary struct {
	Processed int
	Rejected  int
	Failed    int

	DegenerateShapes int
	MergedCandidates int
	DroppedEdges     int
	TruncatedNodes   int

	// Errors holds the per-image failures surfaced to the operator (write
	// conflicts, I/O errors). Rejections by policy are counted, not listed.
	Errors []error
}

// Totals flattens the summary for the tracking sink.
func (s *Summary) Totals() map[string]int {
	return map[string]int{
		"processed":         s.Processed,
		"rejected":          s.Rejected,
		"failed":            s.Failed,
		"degenerate_shapes": s.DegenerateShapes,
		"merged_candidates": s.MergedCandidates,
		"dropped_edges":     s.DroppedEdges,
		"truncated_nodes":   s.TruncatedNodes,
	}
}

// Runner fans a batch of jobs out over a fixed worker pool. Images are
// independent; ordering across images is not guaranteed and not needed.
type Runner struct {
	conv         *Converter
	writer       *dataset.Writer
	emitter      tracking.Emitter
	workers      int
	processedDir string
}

// NewRunner wires the converter to its writer and tracking sink.
// processedDir may be empty to skip training-image preprocessing.
func NewRunner(conv *Converter, writer *dataset.Writer, emitter tracking.Emitter, workers int, processedDir string) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		conv:         conv,
		writer:       writer,
		emitter:      emitter,
		workers:      workers,
		processedDir: processedDir,
	}
}

// Run converts every job and returns the batch summary. A cancelled
// context stops the pool between images; records already committed stay
// valid because dataset writes are atomic.
func (r *Runner) Run(ctx context.Context, jobs []Job) Summary {
	logger := ctxlog.FromContext(ctx)
	jobChan := make(chan Job)

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for workerID := 0; workerID < r.workers; workerID++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			workerLogger := logger.With("workerID", workerID)
			workerLogger.Debug("Worker started.")
			for job := range jobChan {
				if ctx.Err() != nil {
					continue // drain; nothing partial is ever persisted
				}
				outcome := r.runJob(ctx, job)
				mu.Lock()
				summary.merge(outcome)
				mu.Unlock()
			}
			workerLogger.Debug("Worker finished.")
		}(workerID)
	}

	for _, job := range jobs {
		jobChan <- job
	}
	close(jobChan)
	wg.Wait()

	return summary
}

// outcome is the result of one job, merged into the summary under lock.
type outcome struct {
	diag     graphspec.Diagnostics
	rejected bool
	err      error
}

func (s *Summary) merge(o outcome) {
	s.DegenerateShapes += o.diag.DegenerateShapes
	s.MergedCandidates += o.diag.MergedCandidates
	s.DroppedEdges += o.diag.DroppedEdges
	s.TruncatedNodes += o.diag.TruncatedNodes
	switch {
	case o.rejected:
		s.Rejected++
	case o.err != nil:
		s.Failed++
		s.Errors = append(s.Errors, o.err)
	default:
		s.Processed++
	}
}

// runJob converts, persists and reports one image. Every processed image
// emits exactly one diagnostics event, rejected or not.
func (r *Runner) runJob(ctx context.Context, job Job) outcome {
	logger := ctxlog.FromContext(ctx).With("imageID", job.ImageID)

	tg, diag, err := r.conv.ConvertJob(ctx, job)
	if err != nil {
		out := outcome{diag: diag, err: err, rejected: isRejection(err)}
		if out.rejected {
			logger.Warn("Image rejected.", "reason", diag.RejectReason)
			out.err = nil
		} else {
			logger.Error("Image conversion failed.", "error", err)
		}
		r.emit(ctx, job.ImageID, out.diag)
		return out
	}

	if err := r.writer.Write(tg); err != nil {
		var conflict *dataset.WriteConflictError
		if errors.As(err, &conflict) {
			logger.Error("Write conflict, pipeline invariant violated.", "error", err)
		} else {
			logger.Error("Failed to persist record.", "error", err)
		}
		diag.Rejected = true
		diag.RejectReason = err.Error()
		r.emit(ctx, job.ImageID, diag)
		return outcome{diag: diag, err: err}
	}

	if r.processedDir != "" {
		if _, err := imgmeta.Preprocess(job.ImagePath, r.processedDir, tg.Meta.TargetResolution); err != nil {
			// The record is already committed; the image can be regenerated.
			logger.Warn("Failed to write processed training image.", "error", err)
		}
	}

	r.emit(ctx, job.ImageID, diag)
	return outcome{diag: diag}
}

func (r *Runner) emit(ctx context.Context, imageID string, diag graphspec.Diagnostics) {
	if err := r.emitter.EmitImage(ctx, imageID, diag); err != nil {
		ctxlog.FromContext(ctx).Warn("Diagnostics emission failed.", "imageID", imageID, "error", err)
	}
}

// isRejection reports whether the error is a documented skip policy
// (malformed geometry, capacity exceeded) rather than an operational
// failure.
func isRejection(err error) bool {
	var invalid *geom.InvalidGeometryError
	var capacity *canonical.CapacityError
	return errors.As(err, &invalid) || errors.As(err, &capacity)
}
