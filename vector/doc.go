// Package vector holds the low-level embedding helpers shared by the rest of
// this module:
//   - little-endian float32 encoding used by both the binary store and SQLite BLOBs
//   - cosine similarity, L2 distance and magnitude
package vector
