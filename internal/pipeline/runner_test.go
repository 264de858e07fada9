package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amunamun/raster-to-graph/internal/dataset"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
)

// captureEmitter records every event for assertions. Concurrency-safe like
// the real sinks.
type captureEmitter struct {
	mu     sync.Mutex
	images map[string]graphspec.Diagnostics
	runs   int
	closed bool
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{images: make(map[string]graphspec.Diagnostics)}
}

func (e *captureEmitter) EmitImage(_ context.Context, imageID string, d graphspec.Diagnostics) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.images[imageID] = d
	return nil
}

func (e *captureEmitter) EmitRun(context.Context, map[string]int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs++
	return nil
}

func (e *captureEmitter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func writeTestPNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func writeTestAnnot(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunnerRun(t *testing.T) {
	t.Parallel()

	t.Run("processes, rejects and fails independently", func(t *testing.T) {
		t.Parallel()
		rawDir, outDir := t.TempDir(), t.TempDir()

		goodImg := writeTestPNG(t, rawDir, "good.png", 100, 100)
		goodAnnot := writeTestAnnot(t, rawDir, "good.txt", "0 0 0 100 100 100 100 0 plane 0\n")
		badImg := writeTestPNG(t, rawDir, "bad.png", 100, 100)
		badAnnot := writeTestAnnot(t, rawDir, "bad.txt", "10 10 plane\n")
		brokenAnnot := writeTestAnnot(t, rawDir, "broken.txt", "0 0 0 100 100 100 100 0 plane 0\n")

		jobs := []Job{
			{ImageID: "good", ImagePath: goodImg, AnnotPath: goodAnnot},
			{ImageID: "bad", ImagePath: badImg, AnnotPath: badAnnot},
			{ImageID: "broken", ImagePath: filepath.Join(rawDir, "missing.png"), AnnotPath: brokenAnnot},
		}

		writer, err := dataset.NewWriter(outDir)
		require.NoError(t, err)
		emitter := newCaptureEmitter()
		runner := NewRunner(NewConverter(testConfig()), writer, emitter, 4, "")

		summary := runner.Run(context.Background(), jobs)
		assert.Equal(t, 1, summary.Processed)
		assert.Equal(t, 1, summary.Rejected)
		assert.Equal(t, 1, summary.Failed)
		require.Len(t, summary.Errors, 1)

		// Only the good image reached the dataset.
		ids, err := dataset.NewReader(outDir).List()
		require.NoError(t, err)
		assert.Equal(t, []string{"good"}, ids)

		// Exactly one diagnostics event per image, rejected or not.
		require.Len(t, emitter.images, 3)
		assert.False(t, emitter.images["good"].Rejected)
		assert.True(t, emitter.images["bad"].Rejected)
		assert.True(t, emitter.images["broken"].Rejected)
	})

	t.Run("writes processed training images when configured", func(t *testing.T) {
		t.Parallel()
		rawDir, outDir, procDir := t.TempDir(), t.TempDir(), t.TempDir()
		img := writeTestPNG(t, rawDir, "good.png", 100, 100)
		ann := writeTestAnnot(t, rawDir, "good.txt", "0 0 0 100 100 100 100 0 plane 0\n")

		writer, err := dataset.NewWriter(outDir)
		require.NoError(t, err)
		runner := NewRunner(NewConverter(testConfig()), writer, newCaptureEmitter(), 1, procDir)

		summary := runner.Run(context.Background(), []Job{{ImageID: "good", ImagePath: img, AnnotPath: ann}})
		assert.Equal(t, 1, summary.Processed)

		_, err = os.Stat(filepath.Join(procDir, "good.png"))
		assert.NoError(t, err)
	})

	t.Run("cancelled context drains without converting", func(t *testing.T) {
		t.Parallel()
		rawDir, outDir := t.TempDir(), t.TempDir()
		img := writeTestPNG(t, rawDir, "good.png", 100, 100)
		ann := writeTestAnnot(t, rawDir, "good.txt", "0 0 0 100 100 100 100 0 plane 0\n")

		writer, err := dataset.NewWriter(outDir)
		require.NoError(t, err)
		emitter := newCaptureEmitter()
		runner := NewRunner(NewConverter(testConfig()), writer, emitter, 2, "")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		summary := runner.Run(ctx, []Job{{ImageID: "good", ImagePath: img, AnnotPath: ann}})
		assert.Zero(t, summary.Processed)
		assert.Zero(t, summary.Failed)
		assert.Empty(t, emitter.images)
	})

	t.Run("worker count below one is clamped", func(t *testing.T) {
		t.Parallel()
		writer, err := dataset.NewWriter(t.TempDir())
		require.NoError(t, err)
		runner := NewRunner(NewConverter(testConfig()), writer, newCaptureEmitter(), 0, "")
		summary := runner.Run(context.Background(), nil)
		assert.Zero(t, summary.Processed)
	})
}
