// Package attention defines the numeric boundary to the external
// accelerated multi-scale attention primitive. The operator itself is an
// opaque dependency of the training loop; this package only fixes the
// tensor contract so the conversion pipeline and the trainer remain
// independently testable.
package attention
