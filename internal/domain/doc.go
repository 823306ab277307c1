// Package domain defines the core types shared across the IngestionBaard
// backend: indexed sections, stored blobs, approach requests and answers,
// completion requests and ingest events.
package domain
