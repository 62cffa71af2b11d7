// Package source reads the external corpus: verse and commentary rows behind
// the VerseSource capability, and precomputed embeddings from JSON documents
// or SQLite tables.
package source
