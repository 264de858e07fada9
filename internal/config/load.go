package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/amunamun/raster-to-graph/internal/ctxlog"
)

// Load parses, defaults and validates one HCL configuration file. Paths in
// the file may reference the `workspace` variable, which evaluates to the
// directory containing the file.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading pipeline configuration.", "path", path)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing config file %s: %w", path, diags)
	}

	workspace, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"workspace": cty.StringVal(workspace),
		},
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, evalCtx, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding config file %s: %w", path, diags)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("Configuration loaded.",
		"target_resolution", cfg.Pipeline.TargetResolution,
		"merge_epsilon_px", cfg.Pipeline.MergeEpsilonPx,
		"max_nodes", cfg.Pipeline.MaxNodes,
		"truncation_policy", cfg.Pipeline.TruncationPolicy,
	)
	return &cfg, nil
}
