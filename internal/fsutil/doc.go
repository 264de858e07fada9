// Package fsutil provides file system utility functions for discovering
// the raw dataset: image files paired with annotation files by shared base
// name.
package fsutil
