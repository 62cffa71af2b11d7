// Package generate produces embedding record sets offline: it reads verses
// from a source.VerseSource, calls an EmbedFunc for each text and assembles a
// store.Set in source order.
//
// Embedding calls run with bounded concurrency and an optional rate limit.
// Computed vectors are written to a Cache in batches, so an interrupted run
// resumes without re-embedding what it already paid for.
package generate
