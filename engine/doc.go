// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the SQL scalar
// functions used to query scripture tables and embedding BLOBs. It keeps a
// thin surface so other packages can share the same driver instance.
package engine
