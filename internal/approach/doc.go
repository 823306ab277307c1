// Package approach implements the retrieval-augmented generation
// strategies and the registry that dispatches requests to them by short
// name.
//
// Ask approaches: "rtr" (retrieve then read), "rrr" (read retrieve read)
// and "rda" (read decompose ask). Chat approaches: "rrr" (chat read
// retrieve read). Every approach combines search index lookups with LLM
// completions and returns the answer, the supporting data points and a
// reasoning transcript.
package approach
