package config

import (
	"fmt"

	"github.com/amunamun/raster-to-graph/internal/canonical"
	"github.com/amunamun/raster-to-graph/internal/edges"
	"github.com/amunamun/raster-to-graph/internal/keypoint"
)

// ValidationError reports an invalid configuration value. It is fatal at
// startup and carries the offending field for the operator.
type ValidationError struct {
	Field   string
	Problem string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Problem)
}

// Config is the root of the pipeline configuration file.
type Config struct {
	Pipeline Pipeline  `hcl:"pipeline,block"`
	IO       IO        `hcl:"io,block"`
	Tracking *Tracking `hcl:"tracking,block"`
}

// Pipeline holds the conversion parameters proper.
type Pipeline struct {
	// TargetResolution is the square training resolution images and
	// keypoints are aligned to.
	TargetResolution int `hcl:"target_resolution,optional"`
	// MergeEpsilonPx is the dedup threshold ε expressed in pixels at the
	// target resolution. It is converted to normalized units once at
	// startup so clustering is independent of source resolution.
	MergeEpsilonPx float64 `hcl:"merge_epsilon_px,optional"`
	// SnapToGrid snaps normalized keypoints onto the target feature grid.
	SnapToGrid bool `hcl:"snap_to_grid,optional"`
	// MaxNodes is the fixed tensor capacity per image.
	MaxNodes int `hcl:"max_nodes,optional"`
	// TruncationPolicy is "reject" (default) or "truncate".
	TruncationPolicy string `hcl:"truncation_policy,optional"`
	// ExtractionModes is a subset of {"corners", "centroid"}.
	ExtractionModes []string `hcl:"extraction_modes,optional"`
	// RelationRule is "consecutive" (default) or "all-pairs".
	RelationRule string `hcl:"relation_rule,optional"`
	// DegeneracyPolicy is "drop" (default) or "keep".
	DegeneracyPolicy string `hcl:"degeneracy_policy,optional"`
	// BoundsTolerancePx is how far out-of-image a raw coordinate may lie
	// (in source pixels) before the shape is rejected.
	BoundsTolerancePx float64 `hcl:"bounds_tolerance_px,optional"`
	// Classes is the class vocabulary; node class ids index into it.
	Classes []string `hcl:"classes"`
}

// IO locates the raw annotation store and the output dataset directory.
type IO struct {
	RawDir string `hcl:"raw_dir"`
	OutDir string `hcl:"out_dir"`
	// ProcessedImageDir, when set, receives the resized training images.
	ProcessedImageDir string   `hcl:"processed_image_dir,optional"`
	ImageExts         []string `hcl:"image_exts,optional"`
	AnnotExts         []string `hcl:"annot_exts,optional"`
}

// Tracking configures the diagnostics sink.
type Tracking struct {
	// Sink is "log" (default) or "socketio".
	Sink      string `hcl:"sink,optional"`
	URL       string `hcl:"url,optional"`
	Namespace string `hcl:"namespace,optional"`
	Event     string `hcl:"event,optional"`
}

// applyDefaults fills optional fields in place.
func (c *Config) applyDefaults() {
	p := &c.Pipeline
	if p.TargetResolution == 0 {
		p.TargetResolution = 512
	}
	if p.MergeEpsilonPx == 0 {
		p.MergeEpsilonPx = 5
	}
	if p.MaxNodes == 0 {
		p.MaxNodes = 256
	}
	if p.TruncationPolicy == "" {
		p.TruncationPolicy = "reject"
	}
	if len(p.ExtractionModes) == 0 {
		p.ExtractionModes = []string{"corners"}
	}
	if p.RelationRule == "" {
		p.RelationRule = "consecutive"
	}
	if p.DegeneracyPolicy == "" {
		p.DegeneracyPolicy = "drop"
	}
	if p.BoundsTolerancePx == 0 {
		p.BoundsTolerancePx = 1
	}
	if len(c.IO.ImageExts) == 0 {
		c.IO.ImageExts = []string{".png", ".jpg", ".jpeg"}
	}
	if len(c.IO.AnnotExts) == 0 {
		c.IO.AnnotExts = []string{".txt"}
	}
	if c.Tracking != nil && c.Tracking.Sink == "" {
		c.Tracking.Sink = "log"
	}
}

// Validate enforces the configuration contract. The first violation is
// returned as a ValidationError.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.TargetResolution <= 0 {
		return &ValidationError{Field: "pipeline.target_resolution", Problem: "must be positive"}
	}
	if p.MergeEpsilonPx <= 0 {
		return &ValidationError{Field: "pipeline.merge_epsilon_px", Problem: "must be positive"}
	}
	if p.MaxNodes <= 0 {
		return &ValidationError{Field: "pipeline.max_nodes", Problem: "must be positive"}
	}
	if p.TruncationPolicy != "reject" && p.TruncationPolicy != "truncate" {
		return &ValidationError{Field: "pipeline.truncation_policy", Problem: `must be "reject" or "truncate"`}
	}
	for _, m := range p.ExtractionModes {
		if m != "corners" && m != "centroid" {
			return &ValidationError{Field: "pipeline.extraction_modes", Problem: fmt.Sprintf("unknown mode %q", m)}
		}
	}
	if len(p.ExtractionModes) == 0 {
		return &ValidationError{Field: "pipeline.extraction_modes", Problem: "at least one mode is required"}
	}
	if p.RelationRule != "consecutive" && p.RelationRule != "all-pairs" {
		return &ValidationError{Field: "pipeline.relation_rule", Problem: `must be "consecutive" or "all-pairs"`}
	}
	if p.DegeneracyPolicy != "drop" && p.DegeneracyPolicy != "keep" {
		return &ValidationError{Field: "pipeline.degeneracy_policy", Problem: `must be "drop" or "keep"`}
	}
	if p.BoundsTolerancePx < 0 {
		return &ValidationError{Field: "pipeline.bounds_tolerance_px", Problem: "must not be negative"}
	}
	if len(p.Classes) == 0 {
		return &ValidationError{Field: "pipeline.classes", Problem: "class vocabulary must not be empty"}
	}
	if c.IO.RawDir == "" {
		return &ValidationError{Field: "io.raw_dir", Problem: "required"}
	}
	if c.IO.OutDir == "" {
		return &ValidationError{Field: "io.out_dir", Problem: "required"}
	}
	if c.Tracking != nil {
		if c.Tracking.Sink != "log" && c.Tracking.Sink != "socketio" {
			return &ValidationError{Field: "tracking.sink", Problem: `must be "log" or "socketio"`}
		}
		if c.Tracking.Sink == "socketio" && c.Tracking.URL == "" {
			return &ValidationError{Field: "tracking.url", Problem: "required for the socketio sink"}
		}
	}
	return nil
}

// EpsilonNorm returns the dedup threshold in normalized units.
func (c *Config) EpsilonNorm() float64 {
	return c.Pipeline.MergeEpsilonPx / float64(c.Pipeline.TargetResolution)
}

// Modes returns the extraction mode set in its typed form.
func (c *Config) Modes() keypoint.Modes {
	var m keypoint.Modes
	for _, mode := range c.Pipeline.ExtractionModes {
		switch mode {
		case "corners":
			m.Corners = true
		case "centroid":
			m.Centroid = true
		}
	}
	return m
}

// DegeneracyPolicy returns the typed degeneracy policy.
func (c *Config) DegeneracyPolicy() keypoint.Policy {
	if c.Pipeline.DegeneracyPolicy == "keep" {
		return keypoint.PolicyKeep
	}
	return keypoint.PolicyDrop
}

// RelationRule returns the typed edge relation rule.
func (c *Config) RelationRule() edges.Rule {
	if c.Pipeline.RelationRule == "all-pairs" {
		return edges.RuleAllPairs
	}
	return edges.RuleConsecutive
}

// CanonicalConfig returns the encoder configuration.
func (c *Config) CanonicalConfig() canonical.Config {
	return canonical.Config{
		MaxNodes: c.Pipeline.MaxNodes,
		Truncate: c.Pipeline.TruncationPolicy == "truncate",
		Classes:  c.Pipeline.Classes,
	}
}
