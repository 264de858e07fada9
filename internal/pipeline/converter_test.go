package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/amunamun/raster-to-graph/internal/annot"
	"github.com/amunamun/raster-to-graph/internal/canonical"
	"github.com/amunamun/raster-to-graph/internal/config"
	"github.com/amunamun/raster-to-graph/internal/dataset"
	"github.com/amunamun/raster-to-graph/internal/geom"
)

func testConfig() *config.Config {
	return &config.Config{Pipeline: config.Pipeline{
		TargetResolution:  100,
		MergeEpsilonPx:    1, // 0.01 in normalized units
		MaxNodes:          16,
		TruncationPolicy:  "reject",
		ExtractionModes:   []string{"corners"},
		RelationRule:      "consecutive",
		DegeneracyPolicy:  "drop",
		BoundsTolerancePx: 1,
		Classes:           []string{"plane", "ship"},
	}}
}

// box builds an axis-aligned four-corner shape in source pixels.
func box(id int, class string, x0, y0, x1, y1 float64) annot.Shape {
	return annot.Shape{
		ID:    id,
		Class: class,
		Ring:  orb.Ring{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}},
	}
}

// edgeCount counts distinct edges in the adjacency upper triangle.
func edgeCount(tg *canonical.TensorGraph) int {
	n := len(tg.Mask)
	count := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if tg.Adjacency.At(i, j) != 0 {
				count++
			}
		}
	}
	return count
}

func TestConvert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("one box yields four nodes in a ring", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{box(0, "plane", 0, 0, 100, 100)}

		tg, diag, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 4, tg.NumNodes)
		assert.Equal(t, 4, edgeCount(tg))
		assert.Zero(t, diag.MergedCandidates)
		assert.Zero(t, diag.DroppedEdges)
		assert.False(t, diag.Rejected)

		// Canonically first node is the corner at (0,0), class plane.
		assert.Equal(t, 0.0, tg.Features.At(0, 0))
		assert.Equal(t, 0.0, tg.Features.At(0, 1))
		assert.Equal(t, 0.0, tg.Features.At(0, 2))
	})

	t.Run("boxes sharing a corner share one node", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{
			box(0, "plane", 0, 0, 50, 50),
			box(1, "plane", 50, 50, 100, 100),
		}

		tg, diag, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 7, tg.NumNodes)
		assert.Equal(t, 8, edgeCount(tg))
		assert.Equal(t, 1, diag.MergedCandidates)
	})

	t.Run("conversion is deterministic down to the stored bytes", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{
			box(0, "plane", 0, 0, 50, 50),
			box(1, "ship", 50, 50, 100, 100),
		}

		var paths []string
		for i := 0; i < 2; i++ {
			tg, _, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
			require.NoError(t, err)
			dir := t.TempDir()
			w, err := dataset.NewWriter(dir)
			require.NoError(t, err)
			require.NoError(t, w.Write(tg))
			paths = append(paths, filepath.Join(dir, "P0001"+dataset.Ext))
		}

		a, err := os.ReadFile(paths[0])
		require.NoError(t, err)
		b, err := os.ReadFile(paths[1])
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("shape order does not change the tensors", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{
			box(0, "plane", 0, 0, 50, 50),
			box(1, "ship", 50, 50, 100, 100),
			box(2, "plane", 20, 60, 40, 90),
		}
		permuted := []annot.Shape{shapes[2], shapes[0], shapes[1]}

		ta, _, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
		require.NoError(t, err)
		tb, _, err := conv.Convert(ctx, "P0001", permuted, 100, 100)
		require.NoError(t, err)
		assert.True(t, mat.Equal(ta.Features, tb.Features))
		assert.True(t, mat.Equal(ta.Adjacency, tb.Adjacency))
		assert.Equal(t, ta.Mask, tb.Mask)
	})

	t.Run("over capacity rejects under the default policy", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Pipeline.MaxNodes = 3
		conv := NewConverter(cfg)

		_, diag, err := conv.Convert(ctx, "P0001", []annot.Shape{box(0, "plane", 0, 0, 100, 100)}, 100, 100)
		var capErr *canonical.CapacityError
		require.ErrorAs(t, err, &capErr)
		assert.Equal(t, 4, capErr.NumNodes)
		assert.True(t, diag.Rejected)
		assert.NotEmpty(t, diag.RejectReason)
	})

	t.Run("truncate keeps the canonical prefix", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Pipeline.MaxNodes = 3
		cfg.Pipeline.TruncationPolicy = "truncate"
		conv := NewConverter(cfg)

		tg, diag, err := conv.Convert(ctx, "P0001", []annot.Shape{box(0, "plane", 0, 0, 100, 100)}, 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 3, tg.NumNodes)
		assert.Equal(t, 1, diag.TruncatedNodes)
	})

	t.Run("degenerate shape is dropped and its edges counted", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{
			box(0, "plane", 0, 0, 50, 50),
			{ID: 1, Class: "plane", Ring: orb.Ring{{60, 60}, {70, 70}, {80, 80}}},
		}

		tg, diag, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
		require.NoError(t, err)
		assert.Equal(t, 4, tg.NumNodes)
		assert.Equal(t, 1, diag.DegenerateShapes)
		assert.Equal(t, 3, diag.DroppedEdges)
	})

	t.Run("out-of-bounds shape rejects the image", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{box(0, "plane", -20, 0, 100, 100)}

		_, diag, err := conv.Convert(ctx, "P0001", shapes, 100, 100)
		var invalid *geom.InvalidGeometryError
		require.ErrorAs(t, err, &invalid)
		assert.True(t, diag.Rejected)
	})

	t.Run("meta records the training layout", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		shapes := []annot.Shape{box(0, "plane", 0, 0, 200, 100)}

		tg, _, err := conv.Convert(ctx, "P0001", shapes, 200, 100)
		require.NoError(t, err)
		assert.Equal(t, 200, tg.Meta.Width)
		assert.Equal(t, 100, tg.Meta.Height)
		assert.Equal(t, 0.5, tg.Meta.ScaleX)
		assert.Equal(t, 25, tg.Meta.PadTop)
		assert.Equal(t, 0, tg.Meta.PadLeft)
		assert.Equal(t, 100, tg.Meta.TargetResolution)
	})

	t.Run("empty shape list yields an empty graph", func(t *testing.T) {
		t.Parallel()
		conv := NewConverter(testConfig())
		tg, diag, err := conv.Convert(ctx, "P0001", nil, 100, 100)
		require.NoError(t, err)
		assert.Zero(t, tg.NumNodes)
		assert.Zero(t, edgeCount(tg))
		assert.False(t, diag.Rejected)
	})
}
