// Package index contains the SearchIndex adapters: an in-memory index for
// tests and single-process use, and a Redis-persisted index that survives
// restarts.
package index
