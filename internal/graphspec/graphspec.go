package graphspec

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Relation classifies why an edge exists between two nodes.
type Relation uint8

const (
	// RelationNone is the zero value and never appears on a stored edge.
	RelationNone Relation = iota
	// RelationAdjacentCorner connects consecutive corners of the same shape.
	RelationAdjacentCorner
	// RelationSameShape connects any two corners of the same shape.
	RelationSameShape
	// RelationRadial connects a shape's centroid to one of its corners.
	RelationRadial
)

// String returns the configuration-facing name of the relation.
func (r Relation) String() string {
	switch r {
	case RelationAdjacentCorner:
		return "adjacent-corner"
	case RelationSameShape:
		return "same-shape"
	case RelationRadial:
		return "radial"
	default:
		return "none"
	}
}

// Node is one deduplicated graph vertex in normalized [0,1] coordinates.
type Node struct {
	Pos orb.Point
	// Class is the resolved semantic class after majority vote across the
	// contributing shapes.
	Class string
	// ShapeIDs lists the ids of every shape that contributed a keypoint
	// candidate to this node, sorted ascending.
	ShapeIDs []int
	// Degenerate marks a node whose every contributing candidate came from a
	// degenerate shape kept by configuration.
	Degenerate bool
}

// Edge is an unordered pair of node indices. A is always strictly less
// than B; self-loops are rejected at validation time.
type Edge struct {
	A, B     int
	Relation Relation
}

// Meta records how the source image maps onto the normalized frame and the
// processed training image.
type Meta struct {
	Width, Height    int
	ScaleX, ScaleY   float64
	PadLeft, PadTop  int
	TargetResolution int
}

// Graph is the complete graph for one image before tensor encoding.
type Graph struct {
	ImageID string
	Nodes   []Node
	Edges   []Edge
	Meta    Meta
}

// Diagnostics accumulates the non-fatal counters for one image. They are
// emitted once per processed image and never raised as errors.
type Diagnostics struct {
	DegenerateShapes int
	MergedCandidates int
	DroppedEdges     int
	TruncatedNodes   int
	Rejected         bool
	RejectReason     string
}

// Validate checks the structural invariants: every edge references two
// distinct nodes that exist in the graph.
func (g *Graph) Validate() error {
	n := len(g.Nodes)
	for _, e := range g.Edges {
		if e.A < 0 || e.A >= n || e.B < 0 || e.B >= n {
			return fmt.Errorf("graph %s: edge (%d,%d) references a node outside [0,%d)", g.ImageID, e.A, e.B, n)
		}
		if e.A == e.B {
			return fmt.Errorf("graph %s: self-loop on node %d", g.ImageID, e.A)
		}
		if e.A > e.B {
			return fmt.Errorf("graph %s: edge (%d,%d) endpoints not ordered", g.ImageID, e.A, e.B)
		}
	}
	return nil
}
