// Package keypoint turns each normalized shape into candidate graph nodes:
// one candidate per polygon corner and, optionally, one at the area
// centroid. Degenerate shapes (zero area, collinear corners) are handled by
// an explicit policy so the behaviour is deterministic either way.
package keypoint
