package ports

import (
	"context"
	"errors"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
)

// ErrBlobNotFound is returned by BlobStore implementations when the named
// blob does not exist.
var ErrBlobNotFound = errors.New("blob not found")

// SearchOptions narrows a search index query.
type SearchOptions struct {
	// Top limits the number of returned sections. Zero means no limit.
	Top int
	// ExcludeCategory drops sections with the given category.
	ExcludeCategory string
	// SourceFile restricts results to sections of one source document.
	SourceFile string
	// UseSemanticRanker enables the fused ranking instead of plain BM25.
	UseSemanticRanker bool
}

// SearchResult is a ranked page of sections plus the total match count.
type SearchResult struct {
	Sections []domain.Section
	Total    int
}

// SearchIndex is the full-text index over document sections. An empty or
// "*" query matches every indexed section.
type SearchIndex interface {
	Search(ctx context.Context, query string, opts SearchOptions) (*SearchResult, error)
	Add(ctx context.Context, sections []domain.Section) error
	Delete(ctx context.Context, ids []string) (int, error)
}

// BlobStore is the content file store backing /content and ingestion.
type BlobStore interface {
	Upload(ctx context.Context, blob *domain.Blob) error
	Download(ctx context.Context, name string) (*domain.Blob, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
	Delete(ctx context.Context, name string) error
}

// LLMClient produces completions for the approaches.
type LLMClient interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error)
}

// TokenSource yields the bearer token used to authenticate LLM calls.
type TokenSource interface {
	Token(ctx context.Context) (domain.AccessToken, error)
}

// EventHandler processes a single event delivered by the bus.
type EventHandler func(ctx context.Context, event domain.Event) error

// EventBus carries ingest pipeline events between the API and the workers.
// Subscribe joins the shared worker group, so each event reaches exactly
// one Subscribe handler. SubscribeBroadcast delivers every event to its
// handler regardless of other consumers, for observers such as status
// streams.
type EventBus interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) error
	SubscribeBroadcast(ctx context.Context, topic string, handler EventHandler) error
	Close() error
}

// MetricsCollector records service metrics.
type MetricsCollector interface {
	RecordQuestion(approach, status string, duration time.Duration)
	RecordChatTurn(approach, status string, duration time.Duration)
	RecordLLMCall(model string, inputTokens, outputTokens int, duration time.Duration)
	RecordSearch(duration time.Duration, results int)
	RecordDocumentIndexed(status string, sections int)
	SetIndexedSections(count int)
	RecordWorkerPoolStatus(idle, busy, stopped int)
}
