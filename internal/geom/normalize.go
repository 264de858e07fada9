package geom

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// InvalidGeometryError marks a malformed shape: a source data defect that
// skips the whole image but never aborts the batch.
type InvalidGeometryError struct {
	ShapeID int
	Reason  string
}

// Error implements the error interface.
func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("invalid geometry in shape %d: %s", e.ShapeID, e.Reason)
}

// Options controls normalization.
type Options struct {
	// TolerancePx is how far (in source pixels) a coordinate may sit outside
	// the image bounds before the shape is rejected. Points inside the
	// tolerance are clamped onto the image.
	TolerancePx float64
	// Grid, when positive, snaps normalized coordinates onto a Grid×Grid
	// lattice so keypoints align with the training feature grid.
	Grid int
}

// Normalize rescales a ring of source-pixel corners into [0,1]×[0,1].
// The ring must have at least 3 points and every point must lie within the
// image bounds up to Options.TolerancePx. The input ring is not modified.
func Normalize(shapeID int, ring orb.Ring, width, height int, opts Options) (orb.Ring, error) {
	if len(ring) < 3 {
		return nil, &InvalidGeometryError{ShapeID: shapeID, Reason: fmt.Sprintf("only %d points, need at least 3", len(ring))}
	}
	if width <= 0 || height <= 0 {
		return nil, &InvalidGeometryError{ShapeID: shapeID, Reason: fmt.Sprintf("image dimensions %dx%d", width, height)}
	}

	w, h := float64(width), float64(height)
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		x, y := p.X(), p.Y()
		if x < -opts.TolerancePx || x > w+opts.TolerancePx || y < -opts.TolerancePx || y > h+opts.TolerancePx {
			return nil, &InvalidGeometryError{
				ShapeID: shapeID,
				Reason:  fmt.Sprintf("point %d at (%.1f,%.1f) outside %dx%d image beyond tolerance %.1fpx", i, x, y, width, height, opts.TolerancePx),
			}
		}
		x = clamp(x, 0, w) / w
		y = clamp(y, 0, h) / h
		if opts.Grid > 0 {
			g := float64(opts.Grid)
			x = math.Round(x*g) / g
			y = math.Round(y*g) / g
		}
		out[i] = orb.Point{x, y}
	}
	return out, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
