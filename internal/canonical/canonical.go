package canonical

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/amunamun/raster-to-graph/internal/graphspec"
)

// FeatureDim is the per-node feature width: x, y, class id.
const FeatureDim = 3

// CapacityError reports a graph that exceeds the configured node capacity
// under the reject policy. The image is skipped and counted, never
// silently truncated.
type CapacityError struct {
	ImageID  string
	NumNodes int
	MaxNodes int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("graph %s has %d nodes, capacity is %d", e.ImageID, e.NumNodes, e.MaxNodes)
}

// Config controls the tensor encoding.
type Config struct {
	MaxNodes int
	// Truncate switches the over-capacity policy from reject to dropping
	// the tail of the canonical order.
	Truncate bool
	// Classes is the class vocabulary; a node's class id is its index here.
	Classes []string
}

// TensorGraph is the fixed-capacity encoding of one image's graph.
// Exactly the first NumNodes rows/columns are valid; the rest are
// zero-filled and masked out.
type TensorGraph struct {
	ImageID  string
	NumNodes int
	// Features is [MaxNodes × FeatureDim], row i = (x, y, classID).
	Features *mat.Dense
	// Adjacency is [MaxNodes × MaxNodes], symmetric, holding the relation
	// code of the edge between two nodes (0 = no edge).
	Adjacency *mat.Dense
	// Mask is true for the first NumNodes positions.
	Mask []bool
	Meta graphspec.Meta
}

// Canonicalize sorts the graph's nodes lexicographically by (x, y) with the
// class label as tie-break, and remaps the edges accordingly. It is
// idempotent and depends only on node content.
func Canonicalize(g *graphspec.Graph) {
	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return nodeLess(g.Nodes[order[a]], g.Nodes[order[b]])
	})

	remap := make([]int, len(g.Nodes))
	sorted := make([]graphspec.Node, len(g.Nodes))
	for newIdx, oldIdx := range order {
		remap[oldIdx] = newIdx
		sorted[newIdx] = g.Nodes[oldIdx]
	}
	g.Nodes = sorted

	for i, e := range g.Edges {
		a, b := remap[e.A], remap[e.B]
		if a > b {
			a, b = b, a
		}
		g.Edges[i].A, g.Edges[i].B = a, b
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].A != g.Edges[j].A {
			return g.Edges[i].A < g.Edges[j].A
		}
		return g.Edges[i].B < g.Edges[j].B
	})
}

func nodeLess(a, b graphspec.Node) bool {
	if a.Pos.X() != b.Pos.X() {
		return a.Pos.X() < b.Pos.X()
	}
	if a.Pos.Y() != b.Pos.Y() {
		return a.Pos.Y() < b.Pos.Y()
	}
	return a.Class < b.Class
}

// Encode canonicalizes the graph and packs it into fixed-size tensors.
// Over-capacity graphs are rejected with CapacityError unless cfg.Truncate
// is set, in which case the tail of the canonical order is dropped and the
// number of dropped nodes returned.
func Encode(g *graphspec.Graph, cfg Config) (*TensorGraph, int, error) {
	Canonicalize(g)

	truncated := 0
	if len(g.Nodes) > cfg.MaxNodes {
		if !cfg.Truncate {
			return nil, 0, &CapacityError{ImageID: g.ImageID, NumNodes: len(g.Nodes), MaxNodes: cfg.MaxNodes}
		}
		truncated = len(g.Nodes) - cfg.MaxNodes
		g.Nodes = g.Nodes[:cfg.MaxNodes]
		kept := g.Edges[:0]
		for _, e := range g.Edges {
			if e.A < cfg.MaxNodes && e.B < cfg.MaxNodes {
				kept = append(kept, e)
			}
		}
		g.Edges = kept
	}

	if err := g.Validate(); err != nil {
		return nil, 0, err
	}

	classID := make(map[string]int, len(cfg.Classes))
	for i, c := range cfg.Classes {
		classID[c] = i
	}

	features := mat.NewDense(cfg.MaxNodes, FeatureDim, nil)
	adjacency := mat.NewDense(cfg.MaxNodes, cfg.MaxNodes, nil)
	mask := make([]bool, cfg.MaxNodes)

	for i, node := range g.Nodes {
		id, ok := classID[node.Class]
		if !ok {
			return nil, 0, fmt.Errorf("graph %s: class %q not in configured vocabulary", g.ImageID, node.Class)
		}
		features.Set(i, 0, node.Pos.X())
		features.Set(i, 1, node.Pos.Y())
		features.Set(i, 2, float64(id))
		mask[i] = true
	}
	for _, e := range g.Edges {
		code := float64(e.Relation)
		adjacency.Set(e.A, e.B, code)
		adjacency.Set(e.B, e.A, code)
	}

	return &TensorGraph{
		ImageID:   g.ImageID,
		NumNodes:  len(g.Nodes),
		Features:  features,
		Adjacency: adjacency,
		Mask:      mask,
		Meta:      g.Meta,
	}, truncated, nil
}
