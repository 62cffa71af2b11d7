// Package index defines the similarity search API over an embedding store.
package index
