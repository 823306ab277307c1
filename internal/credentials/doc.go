// Package credentials manages the bearer token used to authenticate LLM
// calls. A Renewing source wraps any TokenSource and refreshes the cached
// token shortly before it expires.
package credentials
