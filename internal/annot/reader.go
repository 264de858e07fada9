package annot

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/amunamun/raster-to-graph/internal/geom"
)

// Shape is one raw annotation instance. It is immutable once read; every
// later stage works on normalized copies of the ring.
type Shape struct {
	// ID is the zero-based position of the record in its source file. It is
	// stable on disk but carries no meaning beyond tie-breaking.
	ID      int
	ImageID string
	Class   string
	// Difficulty is the DOTA difficulty flag, kept for completeness.
	Difficulty int
	// Ring holds the polygon corners in source pixel coordinates, unclosed
	// (the first point is not repeated at the end).
	Ring orb.Ring
}

// ReadFile parses every object record in a DOTA annotation file.
// Header lines ("imagesource:...", "gsd:...") and blank lines are skipped.
// A record needs at least one coordinate pair plus the two trailing words.
func ReadFile(path, imageID string) ([]Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening annotation file: %w", err)
	}
	defer f.Close()

	var shapes []Shape
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isHeaderLine(line) {
			continue
		}
		shape, err := parseRecord(line, len(shapes), imageID)
		if err != nil {
			// A malformed record is a source data defect; classify it with
			// the geometry taxonomy so the batch skips just this image.
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, &geom.InvalidGeometryError{
				ShapeID: len(shapes),
				Reason:  err.Error(),
			})
		}
		shapes = append(shapes, shape)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading annotation file: %w", err)
	}
	return shapes, nil
}

// isHeaderLine reports whether the line is a DOTA metadata header rather
// than an object record.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "imagesource") || strings.HasPrefix(lower, "gsd")
}

// parseRecord decodes "x1 y1 ... xn yn class difficulty".
func parseRecord(line string, id int, imageID string) (Shape, error) {
	parts := strings.Fields(line)
	if len(parts) < 4 {
		return Shape{}, fmt.Errorf("record has %d fields, need at least one coordinate pair plus class and difficulty", len(parts))
	}

	class := parts[len(parts)-2]
	difficulty, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return Shape{}, fmt.Errorf("difficulty flag %q is not an integer", parts[len(parts)-1])
	}

	coords := parts[:len(parts)-2]
	if len(coords)%2 != 0 {
		return Shape{}, fmt.Errorf("odd number of coordinate values (%d)", len(coords))
	}

	ring := make(orb.Ring, 0, len(coords)/2)
	for i := 0; i < len(coords); i += 2 {
		x, err := strconv.ParseFloat(coords[i], 64)
		if err != nil {
			return Shape{}, fmt.Errorf("coordinate %q is not a number", coords[i])
		}
		y, err := strconv.ParseFloat(coords[i+1], 64)
		if err != nil {
			return Shape{}, fmt.Errorf("coordinate %q is not a number", coords[i+1])
		}
		ring = append(ring, orb.Point{x, y})
	}

	return Shape{
		ID:         id,
		ImageID:    imageID,
		Class:      class,
		Difficulty: difficulty,
		Ring:       ring,
	}, nil
}
