package dataset

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"

	"github.com/amunamun/raster-to-graph/internal/canonical"
)

// Reader loads persisted tensor graphs. Safe for concurrent use.
type Reader struct {
	dir string
}

// NewReader returns a reader over the given dataset directory.
func NewReader(dir string) *Reader {
	return &Reader{dir: dir}
}

// Read loads and verifies one record. The returned tensors are
// bit-identical to what was written.
func (r *Reader) Read(imageID string) (*canonical.TensorGraph, error) {
	payload, err := os.ReadFile(filepath.Join(r.dir, imageID+Ext))
	if err != nil {
		return nil, fmt.Errorf("reading record %s: %w", imageID, err)
	}

	var rec record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decoding record %s: %w", imageID, err)
	}

	if len(rec.Features) != rec.MaxNodes*rec.FeatureDim ||
		len(rec.Adjacency) != rec.MaxNodes*rec.MaxNodes ||
		len(rec.Mask) != rec.MaxNodes {
		return nil, fmt.Errorf("record %s: payload sizes inconsistent with capacity %d", imageID, rec.MaxNodes)
	}

	sum := checksum(&rec)
	if len(rec.Checksum) != sha256.Size || sum != [sha256.Size]byte(rec.Checksum) {
		return nil, fmt.Errorf("record %s: checksum mismatch, file is corrupted", imageID)
	}

	return &canonical.TensorGraph{
		ImageID:   rec.ImageID,
		NumNodes:  rec.NumNodes,
		Features:  mat.NewDense(rec.MaxNodes, rec.FeatureDim, append([]float64(nil), rec.Features...)),
		Adjacency: mat.NewDense(rec.MaxNodes, rec.MaxNodes, append([]float64(nil), rec.Adjacency...)),
		Mask:      append([]bool(nil), rec.Mask...),
		Meta:      rec.Meta.graphMeta(),
	}, nil
}

// List returns the image ids present in the dataset directory, sorted.
// Uncommitted temp files are ignored.
func (r *Reader) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("listing dataset directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, Ext))
	}
	sort.Strings(ids)
	return ids, nil
}
