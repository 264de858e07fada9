// Package edges derives relation-typed edges between deduplicated nodes
// from shape co-membership: corners of the same shape are connected
// according to the configured relation rule, and a shape's centroid links
// radially to its corners. Edges that would reference a candidate dropped
// during degeneracy handling, and edges whose endpoints merged into one
// node, are dropped silently and only counted.
package edges
