// Package ports defines the interfaces between the application core and
// the adapters: search index, blob store, LLM client, event bus, token
// source and metrics collector.
package ports
