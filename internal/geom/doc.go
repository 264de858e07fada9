// Package geom rescales raw shape coordinates into the canonical [0,1]
// frame. Normalization is a pure function of the shape and the source
// image dimensions; behaviour never depends on source resolution.
package geom
