package approach

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"go.uber.org/zap"
)

// retrieveThenReadPrompt grounds the single completion on the retrieved
// sources. Each source line is "name: content" and the model must cite
// source names.
const retrieveThenReadPrompt = `You are an intelligent assistant helping employees with questions about their company documents.
Answer the question using only the data provided in the sources below.
Each source has a name followed by a colon and the actual information. Always include the source name for each fact you use in the response.
If you cannot answer using the sources below, say you don't know.`

// RetrieveThenRead is the simplest approach: one retrieval, one grounded
// completion.
type RetrieveThenRead struct {
	index     ports.SearchIndex
	llmClient ports.LLMClient
	logger    *zap.Logger
	opts      Options
}

// NewRetrieveThenRead creates the "rtr" approach
func NewRetrieveThenRead(index ports.SearchIndex, llmClient ports.LLMClient, logger *zap.Logger, opts Options) *RetrieveThenRead {
	return &RetrieveThenRead{
		index:     index,
		llmClient: llmClient,
		logger:    logger,
		opts:      opts,
	}
}

// Run answers the question (AskApproach interface)
func (a *RetrieveThenRead) Run(ctx context.Context, question string, overrides domain.Overrides) (*domain.Answer, error) {
	result, err := a.index.Search(ctx, question, searchOptions(overrides, a.opts.DefaultTop))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	points := dataPoints(result.Sections)

	system := retrieveThenReadPrompt
	if overrides.PromptTemplate != "" {
		system = overrides.PromptTemplate
	}

	user := fmt.Sprintf("Question: %s\n\nSources:\n%s", question, strings.Join(points, "\n"))

	resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      system,
		Messages:    []domain.Message{{Role: "user", Content: user}},
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	a.logger.Debug("retrieve-then-read answered",
		zap.Int("sources", len(points)),
		zap.Int("output_tokens", resp.OutputTokens))

	return &domain.Answer{
		Answer:     strings.TrimSpace(resp.Content),
		Thoughts:   fmt.Sprintf("Question: %s\n\nPrompt:\n%s", question, system),
		DataPoints: points,
	}, nil
}
