// Package vec implements the ayah_vec SQLite virtual table: top-K cosine
// search over a binary embedding store file, addressable from SQL.
//
//	CREATE VIRTUAL TABLE tafsir_knn USING ayah_vec(path=tafseer_embeddings.bin);
//	SELECT surah, ayah, score FROM tafsir_knn WHERE embedding MATCH ? AND k = 5;
//
// Features:
//   - MATCH accepts an encoded embedding BLOB, a JSON or CSV float list, or
//     base64 of the BLOB
//   - optional k (default: all records) and score >= / > bounds
//   - without MATCH the table lists the store in record order
//   - loaded stores are cached per path and reloaded when the file changes;
//     ayah_vec_invalidate(path) drops a cached store explicitly
package vec
