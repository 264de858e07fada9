package pipeline

import (
	"context"
	"fmt"

	"github.com/amunamun/raster-to-graph/internal/annot"
	"github.com/amunamun/raster-to-graph/internal/canonical"
	"github.com/amunamun/raster-to-graph/internal/config"
	"github.com/amunamun/raster-to-graph/internal/ctxlog"
	"github.com/amunamun/raster-to-graph/internal/dedup"
	"github.com/amunamun/raster-to-graph/internal/edges"
	"github.com/amunamun/raster-to-graph/internal/geom"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
	"github.com/amunamun/raster-to-graph/internal/imgmeta"
	"github.com/amunamun/raster-to-graph/internal/keypoint"
)

// Job identifies one image to convert.
type Job struct {
	ImageID   string
	ImagePath string
	AnnotPath string
}

// Converter runs the conversion stages for single images. It holds only
// immutable configuration and is safe for concurrent use.
type Converter struct {
	cfg     *config.Config
	epsNorm float64
	modes   keypoint.Modes
	policy  keypoint.Policy
	rule    edges.Rule
	encCfg  canonical.Config
}

// NewConverter precomputes the typed stage parameters from the validated
// configuration.
func NewConverter(cfg *config.Config) *Converter {
	return &Converter{
		cfg:     cfg,
		epsNorm: cfg.EpsilonNorm(),
		modes:   cfg.Modes(),
		policy:  cfg.DegeneracyPolicy(),
		rule:    cfg.RelationRule(),
		encCfg:  cfg.CanonicalConfig(),
	}
}

// Convert runs normalizer → extractor → deduplicator → edge inferencer →
// canonicalizer for one image. Shapes are given explicitly so the stages
// stay a pure function of their input; ConvertJob handles the file I/O.
func (c *Converter) Convert(ctx context.Context, imageID string, shapes []annot.Shape, width, height int) (*canonical.TensorGraph, graphspec.Diagnostics, error) {
	logger := ctxlog.FromContext(ctx).With("imageID", imageID)
	var diag graphspec.Diagnostics

	normOpts := geom.Options{TolerancePx: c.cfg.Pipeline.BoundsTolerancePx}
	if c.cfg.Pipeline.SnapToGrid {
		normOpts.Grid = c.cfg.Pipeline.TargetResolution
	}

	var cands []keypoint.Candidate
	for _, shape := range shapes {
		ring, err := geom.Normalize(shape.ID, shape.Ring, width, height, normOpts)
		if err != nil {
			diag.Rejected = true
			diag.RejectReason = err.Error()
			return nil, diag, err
		}
		shapeCands, degenerate := keypoint.Extract(shape.ID, shape.Class, ring, c.modes, c.policy)
		if degenerate {
			diag.DegenerateShapes++
		}
		cands = append(cands, shapeCands...)
	}

	clustered := dedup.Cluster(cands, c.epsNorm)
	diag.MergedCandidates = clustered.Merged

	edgeList, dropped := edges.Infer(shapes, cands, clustered.NodeOf, c.rule)
	diag.DroppedEdges = dropped

	layout := imgmeta.ComputeLayout(width, height, c.cfg.Pipeline.TargetResolution)
	graph := &graphspec.Graph{
		ImageID: imageID,
		Nodes:   clustered.Nodes,
		Edges:   edgeList,
		Meta: graphspec.Meta{
			Width:            width,
			Height:           height,
			ScaleX:           layout.ScaleX,
			ScaleY:           layout.ScaleY,
			PadLeft:          layout.PadLeft,
			PadTop:           layout.PadTop,
			TargetResolution: c.cfg.Pipeline.TargetResolution,
		},
	}
	if err := graph.Validate(); err != nil {
		diag.Rejected = true
		diag.RejectReason = err.Error()
		return nil, diag, err
	}

	tg, truncated, err := canonical.Encode(graph, c.encCfg)
	if err != nil {
		diag.Rejected = true
		diag.RejectReason = err.Error()
		return nil, diag, err
	}
	diag.TruncatedNodes = truncated

	logger.Debug("Image converted.",
		"nodes", tg.NumNodes,
		"edges", len(graph.Edges),
		"merged", diag.MergedCandidates,
		"dropped_edges", diag.DroppedEdges,
	)
	return tg, diag, nil
}

// ConvertJob reads the raw inputs for one job and converts them.
func (c *Converter) ConvertJob(ctx context.Context, job Job) (*canonical.TensorGraph, graphspec.Diagnostics, error) {
	width, height, err := imgmeta.Probe(job.ImagePath)
	if err != nil {
		return nil, graphspec.Diagnostics{Rejected: true, RejectReason: err.Error()}, err
	}
	shapes, err := annot.ReadFile(job.AnnotPath, job.ImageID)
	if err != nil {
		err = fmt.Errorf("reading annotations for %s: %w", job.ImageID, err)
		return nil, graphspec.Diagnostics{Rejected: true, RejectReason: err.Error()}, err
	}
	return c.Convert(ctx, job.ImageID, shapes, width, height)
}
