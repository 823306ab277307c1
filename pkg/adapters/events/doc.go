// Package events contains the EventBus adapters used by the ingest
// pipeline: Redis Streams for production and an in-memory bus for tests.
package events
