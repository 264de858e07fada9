package attention

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RefPoint is a normalized spatial reference point at one feature level.
type RefPoint struct {
	X, Y  float64
	Level int
}

// Operator is the fixed numeric signature of the accelerated multi-scale
// attention primitive: query/key/value matrices plus spatial reference
// points in, attended features out. Implementations hold no internal state
// and are deterministic under a fixed random seed.
type Operator interface {
	Attend(query, key, value *mat.Dense, refs []RefPoint) (*mat.Dense, error)
}

// ValidateShapes checks the dimensional contract an Operator relies on:
// one reference point per query row, key/value row counts equal, and
// key/query column widths equal. Implementations may assume a validated
// input; callers get the error before crossing the boundary.
func ValidateShapes(query, key, value *mat.Dense, refs []RefPoint) error {
	qr, qc := query.Dims()
	kr, kc := key.Dims()
	vr, _ := value.Dims()

	if qr == 0 || kr == 0 {
		return fmt.Errorf("attention: empty query (%d rows) or key (%d rows)", qr, kr)
	}
	if qc != kc {
		return fmt.Errorf("attention: query width %d != key width %d", qc, kc)
	}
	if kr != vr {
		return fmt.Errorf("attention: key rows %d != value rows %d", kr, vr)
	}
	if len(refs) != qr {
		return fmt.Errorf("attention: %d reference points for %d query rows", len(refs), qr)
	}
	for i, r := range refs {
		if r.X < 0 || r.X > 1 || r.Y < 0 || r.Y > 1 {
			return fmt.Errorf("attention: reference point %d at (%f,%f) outside the normalized frame", i, r.X, r.Y)
		}
		if r.Level < 0 {
			return fmt.Errorf("attention: reference point %d has negative level %d", i, r.Level)
		}
	}
	return nil
}
