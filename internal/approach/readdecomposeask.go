package approach

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"go.uber.org/zap"
)

// decomposePrompt asks the model for standalone search queries covering
// the parts of a compound question.
const decomposePrompt = `Break the user's question into at most 3 simple search queries that together cover everything needed to answer it.
Return one query per line with no numbering and no extra text.
If the question is already simple, return it as the single query.`

// composePrompt produces the final answer over everything retrieved for
// the sub-questions.
const composePrompt = `You are an assistant answering a question using the sources gathered for its sub-questions.
Each source has a name followed by a colon and the actual information. Always include the source name for each fact you use in the response.
If the sources do not cover the question, say you don't know.`

// ReadDecomposeAsk splits a compound question into sub-questions, retrieves
// for each and composes the final answer over all gathered sources.
type ReadDecomposeAsk struct {
	index     ports.SearchIndex
	llmClient ports.LLMClient
	logger    *zap.Logger
	opts      Options
}

// NewReadDecomposeAsk creates the "rda" approach
func NewReadDecomposeAsk(index ports.SearchIndex, llmClient ports.LLMClient, logger *zap.Logger, opts Options) *ReadDecomposeAsk {
	return &ReadDecomposeAsk{
		index:     index,
		llmClient: llmClient,
		logger:    logger,
		opts:      opts,
	}
}

// Run answers the question (AskApproach interface)
func (a *ReadDecomposeAsk) Run(ctx context.Context, question string, overrides domain.Overrides) (*domain.Answer, error) {
	resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      decomposePrompt,
		Messages:    []domain.Message{{Role: "user", Content: question}},
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition failed: %w", err)
	}

	queries := parseQueries(resp.Content)
	if len(queries) == 0 {
		queries = []string{question}
	}

	var thoughts strings.Builder
	thoughts.WriteString("Question: " + question + "\nSub-questions:")

	var points []string
	for _, query := range queries {
		thoughts.WriteString("\n- " + query)

		result, err := a.index.Search(ctx, query, searchOptions(overrides, a.opts.DefaultTop))
		if err != nil {
			return nil, fmt.Errorf("search failed for %q: %w", query, err)
		}

		found := dataPoints(result.Sections)
		points = append(points, found...)

		a.logger.Debug("read-decompose-ask retrieval",
			zap.String("query", query),
			zap.Int("results", len(result.Sections)))
	}

	points = dedupe(points)

	user := fmt.Sprintf("Question: %s\n\nSources:\n%s", question, strings.Join(points, "\n"))
	final, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      composePrompt,
		Messages:    []domain.Message{{Role: "user", Content: user}},
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("composition failed: %w", err)
	}

	return &domain.Answer{
		Answer:     strings.TrimSpace(final.Content),
		Thoughts:   thoughts.String(),
		DataPoints: points,
	}, nil
}

// parseQueries extracts sub-queries, tolerating numbering and bullets.
func parseQueries(content string) []string {
	var queries []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line == "" {
			continue
		}
		queries = append(queries, line)
		if len(queries) == 3 {
			break
		}
	}
	return queries
}

// dedupe drops repeated data points while preserving order.
func dedupe(points []string) []string {
	seen := make(map[string]bool, len(points))
	out := points[:0]
	for _, p := range points {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
