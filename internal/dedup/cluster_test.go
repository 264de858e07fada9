package dedup

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amunamun/raster-to-graph/internal/keypoint"
)

func cand(shapeID int, role keypoint.Role, x, y float64, class string) keypoint.Candidate {
	return keypoint.Candidate{ShapeID: shapeID, Role: role, Point: orb.Point{x, y}, Class: class}
}

func TestCluster(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		res := Cluster(nil, 0.01)
		assert.Empty(t, res.Nodes)
		assert.Empty(t, res.NodeOf)
		assert.Zero(t, res.Merged)
	})

	t.Run("candidates below epsilon merge", func(t *testing.T) {
		t.Parallel()
		cands := []keypoint.Candidate{
			cand(0, 0, 0.5, 0.5, "plane"),
			cand(1, 2, 0.5+0.0099, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.Equal(t, 1, res.Merged)
		assert.Equal(t, []int{0, 0}, res.NodeOf)
		assert.Equal(t, []int{0, 1}, res.Nodes[0].ShapeIDs)
	})

	t.Run("candidates above epsilon stay apart", func(t *testing.T) {
		t.Parallel()
		cands := []keypoint.Candidate{
			cand(0, 0, 0.5, 0.5, "plane"),
			cand(1, 0, 0.5+0.0101, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		assert.Len(t, res.Nodes, 2)
		assert.Zero(t, res.Merged)
	})

	t.Run("distance exactly epsilon does not merge", func(t *testing.T) {
		t.Parallel()
		// The merge predicate is strictly-less-than; a pair sitting exactly
		// on the threshold stays two nodes.
		cands := []keypoint.Candidate{
			cand(0, 0, 0.5, 0.5, "plane"),
			cand(1, 0, 0.51, 0.5, "plane"),
		}
		res := Cluster(cands, 0.51-0.5)
		assert.Len(t, res.Nodes, 2)
		assert.Zero(t, res.Merged)
	})

	t.Run("merging is transitive across a chain", func(t *testing.T) {
		t.Parallel()
		// a-b and b-c are each within eps; a-c is not. All three still form
		// one component.
		cands := []keypoint.Candidate{
			cand(0, 0, 0.500, 0.5, "plane"),
			cand(1, 0, 0.508, 0.5, "plane"),
			cand(2, 0, 0.516, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.Equal(t, 2, res.Merged)
		assert.Equal(t, []int{0, 1, 2}, res.Nodes[0].ShapeIDs)
	})

	t.Run("node position is the member mean", func(t *testing.T) {
		t.Parallel()
		cands := []keypoint.Candidate{
			cand(0, 0, 0.500, 0.5, "plane"),
			cand(1, 0, 0.504, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.InDelta(t, 0.502, res.Nodes[0].Pos.X(), 1e-12)
		assert.InDelta(t, 0.5, res.Nodes[0].Pos.Y(), 1e-12)
	})

	t.Run("node content does not depend on candidate order", func(t *testing.T) {
		t.Parallel()
		a := []keypoint.Candidate{
			cand(0, 0, 0.500, 0.5, "plane"),
			cand(1, 3, 0.503, 0.5, "ship"),
			cand(2, 1, 0.506, 0.5, "plane"),
		}
		b := []keypoint.Candidate{a[2], a[0], a[1]}

		ra := Cluster(a, 0.01)
		rb := Cluster(b, 0.01)
		require.Len(t, ra.Nodes, 1)
		require.Len(t, rb.Nodes, 1)
		// Bit-identical, not merely close: the mean is summed in a
		// content-sorted order.
		assert.Equal(t, ra.Nodes[0], rb.Nodes[0])
	})

	t.Run("class is the per-shape majority vote", func(t *testing.T) {
		t.Parallel()
		cands := []keypoint.Candidate{
			cand(0, 0, 0.5, 0.5, "ship"),
			cand(1, 0, 0.5001, 0.5, "plane"),
			cand(2, 0, 0.5002, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.Equal(t, "plane", res.Nodes[0].Class)
	})

	t.Run("class tie goes to the lowest shape id", func(t *testing.T) {
		t.Parallel()
		cands := []keypoint.Candidate{
			cand(3, 0, 0.5, 0.5, "ship"),
			cand(5, 0, 0.5001, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.Equal(t, "ship", res.Nodes[0].Class)
	})

	t.Run("one shape votes once regardless of corner count", func(t *testing.T) {
		t.Parallel()
		// Shape 0 contributes two corners labelled ship, shapes 1 and 2 one
		// plane corner each. Plane wins 2-1 on shape votes.
		cands := []keypoint.Candidate{
			cand(0, 0, 0.5000, 0.5, "ship"),
			cand(0, 1, 0.5001, 0.5, "ship"),
			cand(1, 0, 0.5002, 0.5, "plane"),
			cand(2, 0, 0.5003, 0.5, "plane"),
		}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.Equal(t, "plane", res.Nodes[0].Class)
	})

	t.Run("degenerate flag clears when any member is regular", func(t *testing.T) {
		t.Parallel()
		degen := cand(0, 0, 0.5, 0.5, "plane")
		degen.Degenerate = true
		cands := []keypoint.Candidate{degen, cand(1, 0, 0.5001, 0.5, "plane")}
		res := Cluster(cands, 0.01)
		require.Len(t, res.Nodes, 1)
		assert.False(t, res.Nodes[0].Degenerate)
	})
}
