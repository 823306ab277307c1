// Package llm provides the LLM client adapters used by the approaches.
// The factory selects the provider implementation from configuration.
package llm
