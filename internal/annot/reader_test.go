package annot

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amunamun/raster-to-graph/internal/geom"
)

func writeAnnot(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "P0001.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadFile(t *testing.T) {
	t.Run("parses DOTA records and skips headers", func(t *testing.T) {
		path := writeAnnot(t, `imagesource:GoogleEarth
gsd:0.146343590398

10 10 10 90 90 90 90 10 plane 0
20.5 20.5 30 20 30 30 20 30 ship 1
`)
		shapes, err := ReadFile(path, "P0001")
		require.NoError(t, err)
		require.Len(t, shapes, 2)

		assert.Equal(t, 0, shapes[0].ID)
		assert.Equal(t, "P0001", shapes[0].ImageID)
		assert.Equal(t, "plane", shapes[0].Class)
		assert.Equal(t, 0, shapes[0].Difficulty)
		assert.Equal(t, orb.Ring{{10, 10}, {10, 90}, {90, 90}, {90, 10}}, shapes[0].Ring)

		assert.Equal(t, 1, shapes[1].ID)
		assert.Equal(t, "ship", shapes[1].Class)
		assert.Equal(t, 1, shapes[1].Difficulty)
		assert.Equal(t, orb.Point{20.5, 20.5}, shapes[1].Ring[0])
	})

	t.Run("short record is an invalid geometry error", func(t *testing.T) {
		path := writeAnnot(t, "10 10 plane\n")
		_, err := ReadFile(path, "P0001")
		require.Error(t, err)
		var invalid *geom.InvalidGeometryError
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("odd coordinate count is rejected", func(t *testing.T) {
		path := writeAnnot(t, "10 10 20 20 30 plane 0\n")
		_, err := ReadFile(path, "P0001")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "odd number of coordinate values")
	})

	t.Run("non-numeric coordinate is rejected", func(t *testing.T) {
		path := writeAnnot(t, "10 x 20 20 30 30 plane 0\n")
		_, err := ReadFile(path, "P0001")
		require.Error(t, err)
	})

	t.Run("non-integer difficulty is rejected", func(t *testing.T) {
		path := writeAnnot(t, "10 10 20 20 30 30 plane hard\n")
		_, err := ReadFile(path, "P0001")
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"), "P0001")
		require.Error(t, err)
	})
}
