// Package blob contains the BlobStore adapters for stored content files:
// an in-memory store for tests and a Redis-backed store.
package blob
