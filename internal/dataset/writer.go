package dataset

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/amunamun/raster-to-graph/internal/canonical"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
)

// Ext is the on-disk extension of one dataset record.
const Ext = ".rtg"

// WriteConflictError reports two writes of the same image id with different
// content within one run. It indicates a pipeline invariant violation and
// is never retried automatically.
type WriteConflictError struct {
	ImageID string
}

// Error implements the error interface.
func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("conflicting write for image %s: same id, different content", e.ImageID)
}

// record is the serialized form of a canonical.TensorGraph. Tensors are
// stored row-major.
type record struct {
	ImageID    string     `msgpack:"image_id"`
	NumNodes   int        `msgpack:"num_nodes"`
	MaxNodes   int        `msgpack:"max_nodes"`
	FeatureDim int        `msgpack:"feature_dim"`
	Features   []float64  `msgpack:"features"`
	Adjacency  []float64  `msgpack:"adjacency"`
	Mask       []bool     `msgpack:"mask"`
	Meta       metaRecord `msgpack:"meta"`
	Checksum   []byte     `msgpack:"checksum"`
}

type metaRecord struct {
	Width            int     `msgpack:"width"`
	Height           int     `msgpack:"height"`
	ScaleX           float64 `msgpack:"scale_x"`
	ScaleY           float64 `msgpack:"scale_y"`
	PadLeft          int     `msgpack:"pad_left"`
	PadTop           int     `msgpack:"pad_top"`
	TargetResolution int     `msgpack:"target_resolution"`
}

// Writer persists tensor graphs under a single output directory. It is safe
// for concurrent use by the worker pool.
type Writer struct {
	dir string

	mu      sync.Mutex
	written map[string][sha256.Size]byte
}

// NewWriter creates the output directory if needed and returns a writer
// with an empty per-run idempotence registry.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}
	return &Writer{dir: dir, written: make(map[string][sha256.Size]byte)}, nil
}

// Write serializes the graph to <dir>/<image id>.rtg. A second write of the
// same id with identical content is a no-op; different content yields a
// WriteConflictError. A leftover file from an earlier run is overwritten,
// since re-running conversion is a deterministic overwrite.
func (w *Writer) Write(tg *canonical.TensorGraph) error {
	rec := toRecord(tg)
	sum := checksum(&rec)
	rec.Checksum = sum[:]

	w.mu.Lock()
	prev, seen := w.written[tg.ImageID]
	if seen {
		w.mu.Unlock()
		if prev != sum {
			return &WriteConflictError{ImageID: tg.ImageID}
		}
		return nil
	}
	w.written[tg.ImageID] = sum
	w.mu.Unlock()

	payload, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encoding record %s: %w", tg.ImageID, err)
	}

	// Commit through a temp file in the same directory so a concurrent
	// reader can never observe a partial record.
	tmp, err := os.CreateTemp(w.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing record %s: %w", tg.ImageID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing record %s: %w", tg.ImageID, err)
	}
	if err := os.Rename(tmpName, w.path(tg.ImageID)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("committing record %s: %w", tg.ImageID, err)
	}
	return nil
}

func (w *Writer) path(imageID string) string {
	return filepath.Join(w.dir, imageID+Ext)
}

func toRecord(tg *canonical.TensorGraph) record {
	maxNodes := len(tg.Mask)
	return record{
		ImageID:    tg.ImageID,
		NumNodes:   tg.NumNodes,
		MaxNodes:   maxNodes,
		FeatureDim: canonical.FeatureDim,
		Features:   flatten(tg.Features, maxNodes, canonical.FeatureDim),
		Adjacency:  flatten(tg.Adjacency, maxNodes, maxNodes),
		Mask:       append([]bool(nil), tg.Mask...),
		Meta: metaRecord{
			Width:            tg.Meta.Width,
			Height:           tg.Meta.Height,
			ScaleX:           tg.Meta.ScaleX,
			ScaleY:           tg.Meta.ScaleY,
			PadLeft:          tg.Meta.PadLeft,
			PadTop:           tg.Meta.PadTop,
			TargetResolution: tg.Meta.TargetResolution,
		},
	}
}

func flatten(m interface{ At(i, j int) float64 }, rows, cols int) []float64 {
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// checksum hashes every payload field in a fixed order. The Checksum field
// itself is excluded.
func checksum(rec *record) [sha256.Size]byte {
	var buf bytes.Buffer
	buf.WriteString(rec.ImageID)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, int64(rec.NumNodes))
	binary.Write(&buf, binary.LittleEndian, int64(rec.MaxNodes))
	binary.Write(&buf, binary.LittleEndian, int64(rec.FeatureDim))
	binary.Write(&buf, binary.LittleEndian, rec.Features)
	binary.Write(&buf, binary.LittleEndian, rec.Adjacency)
	binary.Write(&buf, binary.LittleEndian, rec.Mask)
	binary.Write(&buf, binary.LittleEndian, int64(rec.Meta.Width))
	binary.Write(&buf, binary.LittleEndian, int64(rec.Meta.Height))
	binary.Write(&buf, binary.LittleEndian, rec.Meta.ScaleX)
	binary.Write(&buf, binary.LittleEndian, rec.Meta.ScaleY)
	binary.Write(&buf, binary.LittleEndian, int64(rec.Meta.PadLeft))
	binary.Write(&buf, binary.LittleEndian, int64(rec.Meta.PadTop))
	binary.Write(&buf, binary.LittleEndian, int64(rec.Meta.TargetResolution))
	return sha256.Sum256(buf.Bytes())
}

// graphMeta converts a stored metaRecord back to the in-memory form.
func (m metaRecord) graphMeta() graphspec.Meta {
	return graphspec.Meta{
		Width:            m.Width,
		Height:           m.Height,
		ScaleX:           m.ScaleX,
		ScaleY:           m.ScaleY,
		PadLeft:          m.PadLeft,
		PadTop:           m.PadTop,
		TargetResolution: m.TargetResolution,
	}
}
