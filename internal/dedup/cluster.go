package dedup

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/amunamun/raster-to-graph/internal/graphspec"
	"github.com/amunamun/raster-to-graph/internal/keypoint"
)

// pointRectTol is the half-extent used to index a point in the R-tree,
// which cannot store zero-size rectangles.
const pointRectTol = 1e-9

// Result is the output of one clustering pass.
type Result struct {
	Nodes []graphspec.Node
	// NodeOf maps each candidate index to the index of the node it merged
	// into. Every candidate maps to exactly one node.
	NodeOf []int
	// Merged counts candidates that were collapsed into an existing node,
	// i.e. len(candidates) - len(Nodes).
	Merged int
}

// item adapts a candidate to the R-tree's Spatial interface.
type item struct {
	idx  int
	rect rtreego.Rect
}

func (it *item) Bounds() rtreego.Rect { return it.rect }

// Cluster merges candidates whose Euclidean distance is strictly below eps.
// A pair at exactly eps does NOT merge; that boundary is part of the
// contract and pinned by tests. eps is in normalized units.
func Cluster(cands []keypoint.Candidate, eps float64) Result {
	n := len(cands)
	if n == 0 {
		return Result{NodeOf: []int{}}
	}

	tree := rtreego.NewTree(2, 25, 50)
	items := make([]*item, n)
	for i, c := range cands {
		items[i] = &item{idx: i, rect: rtreego.Point{c.Point.X(), c.Point.Y()}.ToRect(pointRectTol)}
		tree.Insert(items[i])
	}

	// Union-find with path compression and union by rank, as in a Kruskal
	// disjoint-set, but keyed by candidate index.
	parent := make([]int, n)
	rank := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(u int) int {
		for parent[u] != u {
			parent[u] = parent[parent[u]]
			u = parent[u]
		}
		return u
	}
	union := func(u, v int) {
		ru, rv := find(u), find(v)
		if ru == rv {
			return
		}
		if rank[ru] < rank[rv] {
			ru, rv = rv, ru
		}
		parent[rv] = ru
		if rank[ru] == rank[rv] {
			rank[ru]++
		}
	}

	// The eps-box around each candidate covers the open eps-disc, so the
	// strict distance check below never misses a mergeable pair.
	for i, c := range cands {
		box := rtreego.Point{c.Point.X(), c.Point.Y()}.ToRect(eps)
		for _, hit := range tree.SearchIntersect(box) {
			j := hit.(*item).idx
			if j <= i {
				continue
			}
			if dist(c.Point, cands[j].Point) < eps {
				union(i, j)
			}
		}
	}

	// Collect components in first-occurrence order of their members. The
	// canonicalizer imposes the final content-based order later; here we
	// only need something that does not leak map iteration order.
	nodeOf := make([]int, n)
	compIdx := make(map[int]int)
	var members [][]int
	for i := range cands {
		root := find(i)
		ci, ok := compIdx[root]
		if !ok {
			ci = len(members)
			compIdx[root] = ci
			members = append(members, nil)
		}
		members[ci] = append(members[ci], i)
		nodeOf[i] = ci
	}

	nodes := make([]graphspec.Node, len(members))
	for ci, m := range members {
		nodes[ci] = collapse(cands, m)
	}

	return Result{
		Nodes:  nodes,
		NodeOf: nodeOf,
		Merged: n - len(members),
	}
}

// collapse folds one connected component into a single node.
func collapse(cands []keypoint.Candidate, members []int) graphspec.Node {
	// Sum coordinates in sorted member order so the mean is byte-identical
	// regardless of input shape order.
	sort.Slice(members, func(a, b int) bool {
		ca, cb := cands[members[a]], cands[members[b]]
		if ca.Point.X() != cb.Point.X() {
			return ca.Point.X() < cb.Point.X()
		}
		if ca.Point.Y() != cb.Point.Y() {
			return ca.Point.Y() < cb.Point.Y()
		}
		if ca.ShapeID != cb.ShapeID {
			return ca.ShapeID < cb.ShapeID
		}
		return ca.Role < cb.Role
	})

	var sx, sy float64
	shapeClass := make(map[int]string, len(members))
	degenerate := true
	for _, mi := range members {
		c := cands[mi]
		sx += c.Point.X()
		sy += c.Point.Y()
		shapeClass[c.ShapeID] = c.Class
		if !c.Degenerate {
			degenerate = false
		}
	}
	count := float64(len(members))

	shapeIDs := make([]int, 0, len(shapeClass))
	for id := range shapeClass {
		shapeIDs = append(shapeIDs, id)
	}
	sort.Ints(shapeIDs)

	return graphspec.Node{
		Pos:        orb.Point{sx / count, sy / count},
		Class:      voteClass(shapeIDs, shapeClass),
		ShapeIDs:   shapeIDs,
		Degenerate: degenerate,
	}
}

// voteClass picks the majority class among contributing shapes, one vote
// per shape. Ties go to the class containing the lowest shape id.
func voteClass(shapeIDs []int, shapeClass map[int]string) string {
	votes := make(map[string]int)
	minShape := make(map[string]int)
	for _, id := range shapeIDs { // ascending, so first sighting is the min
		class := shapeClass[id]
		votes[class]++
		if _, ok := minShape[class]; !ok {
			minShape[class] = id
		}
	}

	best := ""
	for class, v := range votes {
		if best == "" {
			best = class
			continue
		}
		if v > votes[best] || (v == votes[best] && minShape[class] < minShape[best]) {
			best = class
		}
	}
	return best
}

func dist(a, b orb.Point) float64 {
	dx := a.X() - b.X()
	dy := a.Y() - b.Y()
	return math.Hypot(dx, dy)
}
