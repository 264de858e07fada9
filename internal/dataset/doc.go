// Package dataset persists canonical tensor graphs, one msgpack record per
// image id. Writes are atomic (temp file + rename), idempotent per image
// id, and guarded against two workers racing to write the same id with
// different content. Reading a record reproduces the tensors bit for bit.
package dataset
