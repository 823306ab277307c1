// Package search implements the ranking primitives behind the section
// index: tokenization, BM25 scoring and reciprocal rank fusion.
package search
