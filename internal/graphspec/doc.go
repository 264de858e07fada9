// Package graphspec defines the in-memory graph produced for one image:
// deduplicated nodes with spatial and class attributes, relation-typed
// edges between them, and the per-image diagnostics accumulated while the
// graph was built. The types here are the contract between the conversion
// stages; they carry no behaviour beyond structural validation.
package graphspec
