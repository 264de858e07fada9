package keypoint

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Role identifies what a candidate represents within its shape. Non-negative
// values are corner indices; RoleCentroid marks the area centroid.
type Role int

// RoleCentroid is the role of a shape's centroid candidate.
const RoleCentroid Role = -1

// Policy selects how degenerate shapes are treated.
type Policy uint8

const (
	// PolicyDrop discards all candidates of a degenerate shape.
	PolicyDrop Policy = iota
	// PolicyKeep emits the candidates with the Degenerate marker set.
	PolicyKeep
)

// Modes selects which candidates are extracted per shape. At least one mode
// must be enabled; the configuration layer enforces that before any image
// is processed.
type Modes struct {
	Corners  bool
	Centroid bool
}

// Candidate is a keypoint derived from one shape. Multiple candidates from
// different shapes may map to the same physical location; deduplication
// resolves that later.
type Candidate struct {
	ShapeID    int
	Role       Role
	Point      orb.Point
	Class      string
	Degenerate bool
}

// degenerateAreaEps is the absolute normalized area below which a ring is
// considered degenerate (zero area or collinear corners).
const degenerateAreaEps = 1e-12

// Extract emits the candidate keypoints for one normalized shape.
// The returned flag reports whether the shape was degenerate, independent
// of whether its candidates were kept.
func Extract(shapeID int, class string, ring orb.Ring, modes Modes, policy Policy) ([]Candidate, bool) {
	degenerate := math.Abs(planar.Area(closed(ring))) < degenerateAreaEps
	if degenerate && policy == PolicyDrop {
		return nil, true
	}

	var out []Candidate
	if modes.Corners {
		for i, p := range ring {
			out = append(out, Candidate{
				ShapeID:    shapeID,
				Role:       Role(i),
				Point:      p,
				Class:      class,
				Degenerate: degenerate,
			})
		}
	}
	if modes.Centroid {
		out = append(out, Candidate{
			ShapeID:    shapeID,
			Role:       RoleCentroid,
			Point:      centroid(ring, degenerate),
			Class:      class,
			Degenerate: degenerate,
		})
	}
	return out, degenerate
}

// centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings where the area-weighted form divides by zero.
func centroid(ring orb.Ring, degenerate bool) orb.Point {
	if !degenerate {
		c, _ := planar.CentroidArea(closed(ring))
		return c
	}
	var sx, sy float64
	for _, p := range ring {
		sx += p.X()
		sy += p.Y()
	}
	n := float64(len(ring))
	return orb.Point{sx / n, sy / n}
}

// closed returns a ring with the first point repeated at the end, as the
// planar helpers expect.
func closed(ring orb.Ring) orb.Ring {
	if len(ring) == 0 || ring[0] == ring[len(ring)-1] {
		return ring
	}
	out := make(orb.Ring, len(ring)+1)
	copy(out, ring)
	out[len(ring)] = ring[0]
	return out
}
