package approach

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"go.uber.org/zap"
)

// readRetrieveReadPrompt drives the iterative loop: the model either
// requests another lookup with Search[...] or commits to a final answer.
const readRetrieveReadPrompt = `You are an assistant answering questions about company documents. You can look up information with the search action.
At each step respond with exactly one of:
Search[<query>] to look up information in the document index.
Answer: <final answer> when you have enough information. Cite the source name for each fact and say you don't know if the sources do not cover the question.
Each observation lists sources as "name: content".`

// maxReadRetrieveSteps bounds the search loop.
const maxReadRetrieveSteps = 5

var searchActionRe = regexp.MustCompile(`Search\[(.+?)\]`)

// ReadRetrieveRead is the iterative approach: the model alternates search
// actions and reading until it answers.
type ReadRetrieveRead struct {
	index     ports.SearchIndex
	llmClient ports.LLMClient
	logger    *zap.Logger
	opts      Options
}

// NewReadRetrieveRead creates the "rrr" ask approach
func NewReadRetrieveRead(index ports.SearchIndex, llmClient ports.LLMClient, logger *zap.Logger, opts Options) *ReadRetrieveRead {
	return &ReadRetrieveRead{
		index:     index,
		llmClient: llmClient,
		logger:    logger,
		opts:      opts,
	}
}

// Run answers the question (AskApproach interface)
func (a *ReadRetrieveRead) Run(ctx context.Context, question string, overrides domain.Overrides) (*domain.Answer, error) {
	var transcript strings.Builder
	transcript.WriteString("Question: " + question)

	var points []string

	for step := 0; step < maxReadRetrieveSteps; step++ {
		resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
			Model:       a.opts.Model,
			System:      readRetrieveReadPrompt,
			Messages:    []domain.Message{{Role: "user", Content: transcript.String()}},
			Temperature: temperature(overrides, a.opts.Temperature),
			MaxTokens:   a.opts.MaxTokens,
			Stop:        []string{"Observation:"},
		})
		if err != nil {
			return nil, fmt.Errorf("completion failed at step %d: %w", step, err)
		}

		content := strings.TrimSpace(resp.Content)

		if answer, ok := extractAnswer(content); ok {
			transcript.WriteString("\n" + content)
			return &domain.Answer{
				Answer:     answer,
				Thoughts:   transcript.String(),
				DataPoints: points,
			}, nil
		}

		match := searchActionRe.FindStringSubmatch(content)
		if match == nil {
			// No action and no explicit answer, take the text as-is
			transcript.WriteString("\n" + content)
			return &domain.Answer{
				Answer:     content,
				Thoughts:   transcript.String(),
				DataPoints: points,
			}, nil
		}

		query := strings.TrimSpace(match[1])
		result, err := a.index.Search(ctx, query, searchOptions(overrides, a.opts.DefaultTop))
		if err != nil {
			return nil, fmt.Errorf("search failed for %q: %w", query, err)
		}

		observation := "No results."
		if len(result.Sections) > 0 {
			found := dataPoints(result.Sections)
			points = append(points, found...)
			observation = strings.Join(found, "\n")
		}

		a.logger.Debug("read-retrieve-read step",
			zap.Int("step", step),
			zap.String("query", query),
			zap.Int("results", len(result.Sections)))

		transcript.WriteString("\n" + content)
		transcript.WriteString("\nObservation:\n" + observation)
	}

	// Step budget exhausted, force a final answer from what was gathered
	resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      retrieveThenReadPrompt,
		Messages: []domain.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Question: %s\n\nSources:\n%s", question, strings.Join(points, "\n")),
		}},
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("final completion failed: %w", err)
	}

	return &domain.Answer{
		Answer:     strings.TrimSpace(resp.Content),
		Thoughts:   transcript.String(),
		DataPoints: points,
	}, nil
}

// extractAnswer pulls the final answer out of an "Answer:" line.
func extractAnswer(content string) (string, bool) {
	idx := strings.Index(content, "Answer:")
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(content[idx+len("Answer:"):]), true
}
