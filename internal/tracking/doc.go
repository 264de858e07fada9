// Package tracking emits per-image conversion diagnostics to an experiment
// tracking sink. Exactly one event is emitted per processed image; the
// transport is pluggable (structured log, socket.io) and failures to emit
// never affect conversion results.
package tracking
