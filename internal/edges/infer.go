package edges

import (
	"sort"

	"github.com/amunamun/raster-to-graph/internal/annot"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
	"github.com/amunamun/raster-to-graph/internal/keypoint"
)

// Rule selects how corners of one shape are connected.
type Rule uint8

const (
	// RuleConsecutive connects corner i to corner (i+1) mod n.
	RuleConsecutive Rule = iota
	// RuleAllPairs connects every corner pair of the shape.
	RuleAllPairs
)

// shapeNodes indexes the node each of a shape's candidates merged into.
type shapeNodes struct {
	corners  map[int]int // corner role -> node index
	centroid int         // -1 when the shape has no centroid candidate
}

// Infer produces the deduplicated edge set for one image. nodeOf maps each
// candidate index to its node, as returned by the deduplicator. The second
// return value counts edges dropped because an endpoint candidate was
// missing (degenerate shape handling) or because both endpoints merged into
// the same node.
func Infer(shapes []annot.Shape, cands []keypoint.Candidate, nodeOf []int, rule Rule) ([]graphspec.Edge, int) {
	byShape := make(map[int]*shapeNodes)
	for i, c := range cands {
		sn, ok := byShape[c.ShapeID]
		if !ok {
			sn = &shapeNodes{corners: make(map[int]int), centroid: -1}
			byShape[c.ShapeID] = sn
		}
		if c.Role == keypoint.RoleCentroid {
			sn.centroid = nodeOf[i]
		} else {
			sn.corners[int(c.Role)] = nodeOf[i]
		}
	}

	seen := make(map[[2]int]struct{})
	var out []graphspec.Edge
	dropped := 0

	add := func(a, b int, rel graphspec.Relation) {
		if a == b {
			dropped++ // endpoints collapsed during deduplication
			return
		}
		if a > b {
			a, b = b, a
		}
		key := [2]int{a, b}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, graphspec.Edge{A: a, B: b, Relation: rel})
	}

	for _, shape := range shapes {
		n := len(shape.Ring)
		sn := byShape[shape.ID]

		corner := func(role int) (int, bool) {
			if sn == nil {
				return 0, false
			}
			idx, ok := sn.corners[role]
			return idx, ok
		}

		switch rule {
		case RuleAllPairs:
			for i := 0; i < n; i++ {
				for j := i + 1; j < n; j++ {
					a, okA := corner(i)
					b, okB := corner(j)
					if !okA || !okB {
						dropped++
						continue
					}
					add(a, b, graphspec.RelationSameShape)
				}
			}
		default: // RuleConsecutive
			for i := 0; i < n; i++ {
				a, okA := corner(i)
				b, okB := corner((i + 1) % n)
				if !okA || !okB {
					dropped++
					continue
				}
				add(a, b, graphspec.RelationAdjacentCorner)
			}
		}

		if sn != nil && sn.centroid >= 0 {
			for i := 0; i < n; i++ {
				c, ok := corner(i)
				if !ok {
					dropped++
					continue
				}
				add(sn.centroid, c, graphspec.RelationRadial)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out, dropped
}
