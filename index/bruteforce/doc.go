// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning all vectors of a store and scoring via cosine similarity.
package bruteforce
