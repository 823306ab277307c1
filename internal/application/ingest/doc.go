// Package ingest implements the worker pool that indexes uploaded
// documents.
//
// The pool manages a fixed number of goroutines that:
//   - Receive document.uploaded events from the event bus
//   - Download the blob, split it into overlapping sections
//   - Write the sections to the search index
//   - Publish document.indexed or document.failed events
//
// The health monitor tracks worker status and logs metrics.
package ingest
