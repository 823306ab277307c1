// Package http exposes the REST API: question answering over the indexed
// documents, content file serving and document management for the ingest
// pipeline.
package http
