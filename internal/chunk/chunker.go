// Package chunk splits document text into overlapping sections for
// indexing.
package chunk

import (
	"strings"
	"unicode"
)

// boundaryLookback is how far back a chunk end may move to land on
// whitespace before cutting mid-word.
const boundaryLookback = 50

// FixedSizeChunker splits text into chunks of at most ChunkSize runes with
// Overlap runes shared between consecutive chunks.
type FixedSizeChunker struct {
	ChunkSize int
	Overlap   int
}

// NewFixedSizeChunker creates a chunker, falling back to safe defaults for
// out-of-range parameters.
func NewFixedSizeChunker(chunkSize, overlap int) *FixedSizeChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &FixedSizeChunker{
		ChunkSize: chunkSize,
		Overlap:   overlap,
	}
}

// Split divides the text into chunks, preferring whitespace boundaries.
func (c *FixedSizeChunker) Split(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}

	runes := []rune(trimmed)
	if len(runes) <= c.ChunkSize {
		return []string{trimmed}
	}

	var chunks []string
	start := 0

	for start < len(runes) {
		end := start + c.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		// Cut back to whitespace within the lookback window
		if end < len(runes) {
			hardEnd := end
			limit := end - boundaryLookback
			if limit < start {
				limit = start
			}
			for i := end - 1; i >= limit; i-- {
				if unicode.IsSpace(runes[i]) {
					end = i
					break
				}
			}
			// A cut at the window start would stall the scan, take the
			// hard cut instead
			if end <= start {
				end = hardEnd
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end - c.Overlap
		// The window must always move forward
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
