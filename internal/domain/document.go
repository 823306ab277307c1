package domain

import "time"

// Section is a chunk of a source document stored in the search index.
type Section struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Category   string  `json:"category,omitempty"`
	SourcePage string  `json:"sourcepage"`
	SourceFile string  `json:"sourcefile"`
	Score      float64 `json:"score,omitempty"`
}

// Blob is a stored content file with its payload.
type Blob struct {
	Name         string
	ContentType  string
	Data         []byte
	ETag         string
	LastModified time.Time
}

// BlobInfo describes a stored blob without its payload.
type BlobInfo struct {
	Name         string    `json:"name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}

// DocumentSummary is one entry of the de-duplicated document listing:
// blobs grouped by base name, keeping the earliest upload per group.
type DocumentSummary struct {
	Name         string    `json:"name"`
	ETag         string    `json:"etag"`
	LastModified time.Time `json:"last_modified"`
}
