package tracking

import (
	"context"

	"github.com/google/uuid"

	"github.com/amunamun/raster-to-graph/internal/ctxlog"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
)

// Emitter receives one diagnostics event per processed image plus one run
// summary. Implementations must be safe for concurrent use by the worker
// pool.
type Emitter interface {
	EmitImage(ctx context.Context, imageID string, d graphspec.Diagnostics) error
	EmitRun(ctx context.Context, totals map[string]int) error
	Close() error
}

// NewRunID returns the identifier attached to every event of one batch run.
func NewRunID() string {
	return uuid.NewString()
}

// imagePayload flattens diagnostics into the wire/log form shared by all
// sinks.
func imagePayload(runID, imageID string, d graphspec.Diagnostics) map[string]any {
	return map[string]any{
		"run_id":            runID,
		"image_id":          imageID,
		"degenerate_shapes": d.DegenerateShapes,
		"merged_candidates": d.MergedCandidates,
		"dropped_edges":     d.DroppedEdges,
		"truncated_nodes":   d.TruncatedNodes,
		"rejected":          d.Rejected,
		"reject_reason":     d.RejectReason,
	}
}

// LogEmitter writes diagnostics to the run's structured logger.
type LogEmitter struct {
	runID string
}

// NewLogEmitter returns a log-backed emitter tagged with the run id.
func NewLogEmitter(runID string) *LogEmitter {
	return &LogEmitter{runID: runID}
}

// EmitImage logs one image's counters.
func (e *LogEmitter) EmitImage(ctx context.Context, imageID string, d graphspec.Diagnostics) error {
	args := make([]any, 0, 16)
	for k, v := range imagePayload(e.runID, imageID, d) {
		args = append(args, k, v)
	}
	ctxlog.FromContext(ctx).Info("Image diagnostics.", args...)
	return nil
}

// EmitRun logs the batch totals.
func (e *LogEmitter) EmitRun(ctx context.Context, totals map[string]int) error {
	args := []any{"run_id", e.runID}
	for k, v := range totals {
		args = append(args, k, v)
	}
	ctxlog.FromContext(ctx).Info("Run summary.", args...)
	return nil
}

// Close is a no-op for the log sink.
func (e *LogEmitter) Close() error { return nil }

// Nop discards all events. Used when tracking is not configured.
type Nop struct{}

// EmitImage discards the event.
func (Nop) EmitImage(context.Context, string, graphspec.Diagnostics) error { return nil }

// EmitRun discards the event.
func (Nop) EmitRun(context.Context, map[string]int) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }
