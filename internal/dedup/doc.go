// Package dedup merges near-duplicate keypoint candidates into unique graph
// nodes. Candidates within the merge threshold form an equivalence class by
// connectivity (A≈B and B≈C merges all three), computed as union-find over
// the proximity pairs an R-tree reports. This is the correctness-critical
// stage of the pipeline: the threshold is expressed in normalized units so
// clustering behaves identically at every source resolution.
package dedup
