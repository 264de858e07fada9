// Package imgmeta probes source image dimensions and produces the
// resized, center-padded training images. The layout math is a pure
// function so the converter can compute coordinate metadata without
// touching pixel data.
package imgmeta
