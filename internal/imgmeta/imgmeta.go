package imgmeta

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// Probe returns the pixel dimensions of an image without decoding pixel
// data.
func Probe(path string) (width, height int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("opening image: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decoding image header %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

// Layout describes how a source image maps onto the square target canvas:
// uniform scale preserving aspect ratio, then centering offsets.
type Layout struct {
	ScaleX, ScaleY  float64
	ScaledW, ScaledH int
	PadLeft, PadTop  int
}

// ComputeLayout is the pure layout math shared by Preprocess and the
// converter's metadata. target must be positive.
func ComputeLayout(width, height, target int) Layout {
	s := math.Min(float64(target)/float64(width), float64(target)/float64(height))
	sw := int(math.Round(float64(width) * s))
	sh := int(math.Round(float64(height) * s))
	return Layout{
		ScaleX:  s,
		ScaleY:  s,
		ScaledW: sw,
		ScaledH: sh,
		PadLeft: (target - sw) / 2,
		PadTop:  (target - sh) / 2,
	}
}

// Preprocess resizes the image onto a white target×target canvas, centered,
// and saves it under outDir with the source base name. Returns the layout
// actually applied.
func Preprocess(path, outDir string, target int) (Layout, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return Layout{}, fmt.Errorf("opening image %s: %w", path, err)
	}
	bounds := img.Bounds()
	layout := ComputeLayout(bounds.Dx(), bounds.Dy(), target)

	resized := imaging.Resize(img, layout.ScaledW, layout.ScaledH, imaging.Lanczos)
	canvas := imaging.New(target, target, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	canvas = imaging.Paste(canvas, resized, image.Pt(layout.PadLeft, layout.PadTop))

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Layout{}, fmt.Errorf("creating image output directory: %w", err)
	}
	outPath := filepath.Join(outDir, filepath.Base(path))
	if err := imaging.Save(canvas, outPath); err != nil {
		return Layout{}, fmt.Errorf("saving processed image %s: %w", outPath, err)
	}
	return layout, nil
}
