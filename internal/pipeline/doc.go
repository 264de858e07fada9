// Package pipeline composes the six conversion stages into a per-image
// converter and runs a worker pool over the batch of images. Each image is
// a pure, independent job: per-image errors are isolated and counted, and
// a worker can be cancelled between images without corrupting the output
// dataset.
package pipeline
