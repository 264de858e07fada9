// Package annot reads raw DOTA-style annotation files. One text line per
// object: an even list of pixel coordinates followed by the class label and
// the difficulty flag. The reader tolerates the metadata header lines some
// DOTA releases carry and hands structural validation of the geometry to
// the normalizer.
package annot
