package app

import (
	"context"
	"fmt"

	"github.com/amunamun/raster-to-graph/internal/ctxlog"
	"github.com/amunamun/raster-to-graph/internal/dataset"
	"github.com/amunamun/raster-to-graph/internal/fsutil"
	"github.com/amunamun/raster-to-graph/internal/pipeline"
	"github.com/amunamun/raster-to-graph/internal/tracking"
)

// Run executes the batch conversion based on the provided configuration.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	pairs, err := fsutil.FindPairs(a.pipeline.IO.RawDir, a.pipeline.IO.ImageExts, a.pipeline.IO.AnnotExts)
	if err != nil {
		return fmt.Errorf("failed to discover annotation pairs: %w", err)
	}
	if len(pairs) == 0 {
		a.logger.Warn("No image/annotation pairs found, nothing to convert.", "raw_dir", a.pipeline.IO.RawDir)
		return nil
	}
	a.logger.Info("Discovered raw dataset.", "pairs", len(pairs))

	writer, err := dataset.NewWriter(a.pipeline.IO.OutDir)
	if err != nil {
		return fmt.Errorf("failed to open dataset directory: %w", err)
	}

	emitter, err := a.newEmitter(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect tracking sink: %w", err)
	}
	defer emitter.Close()

	jobs := make([]pipeline.Job, len(pairs))
	for i, p := range pairs {
		jobs[i] = pipeline.Job{ImageID: p.ID, ImagePath: p.ImagePath, AnnotPath: p.AnnotPath}
	}

	conv := pipeline.NewConverter(a.pipeline)
	runner := pipeline.NewRunner(conv, writer, emitter, appConfig.WorkerCount, a.pipeline.IO.ProcessedImageDir)

	a.logger.Info("Starting conversion.", "images", len(jobs), "workers", appConfig.WorkerCount)
	summary := runner.Run(ctx, jobs)
	a.logger.Info("Conversion finished.",
		"processed", summary.Processed,
		"rejected", summary.Rejected,
		"failed", summary.Failed,
		"merged_candidates", summary.MergedCandidates,
		"degenerate_shapes", summary.DegenerateShapes,
		"dropped_edges", summary.DroppedEdges,
	)

	if err := emitter.EmitRun(ctx, summary.Totals()); err != nil {
		a.logger.Warn("Failed to emit run summary.", "error", err)
	}

	if summary.Failed > 0 {
		return fmt.Errorf("conversion completed with %d failed images (first: %w)", summary.Failed, summary.Errors[0])
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

// newEmitter builds the configured tracking sink. Without a tracking block
// the diagnostics still reach the structured log.
func (a *App) newEmitter(ctx context.Context) (tracking.Emitter, error) {
	runID := tracking.NewRunID()
	a.logger.Info("Tracking run started.", "run_id", runID)

	t := a.pipeline.Tracking
	if t == nil || t.Sink == "log" {
		return tracking.NewLogEmitter(runID), nil
	}
	return tracking.NewSocketEmitter(ctx, runID, t.URL, t.Namespace, t.Event)
}
