// Package canonical imposes the deterministic node ordering and produces
// the fixed-capacity tensor encoding consumed by training. Two conversions
// of the same graph content always yield identical tensors: ordering is a
// function of node content only, never of input or iteration order.
package canonical
