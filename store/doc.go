// Package store implements the "embedding store v1" binary format: a 12-byte
// header ("TAF1", little-endian record count, little-endian dimension)
// followed by count fixed-size records of id (uint16), surah (uint8),
// ayah (uint16) and dim little-endian float32 values.
//
// A Set is the in-memory form. It is built once, encoded once, and treated as
// read-only afterwards, so a decoded Set can be shared by concurrent readers.
package store
