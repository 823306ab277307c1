package approach

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"go.uber.org/zap"
)

// AskApproach answers a single standalone question.
type AskApproach interface {
	Run(ctx context.Context, question string, overrides domain.Overrides) (*domain.Answer, error)
}

// ChatApproach answers the pending question of a chat history.
type ChatApproach interface {
	Run(ctx context.Context, history []domain.ChatTurn, overrides domain.Overrides) (*domain.Answer, error)
}

// Options carries the model defaults shared by all approaches.
type Options struct {
	Model       string
	Temperature float64
	MaxTokens   int
	DefaultTop  int
}

// Registry holds the fixed approach maps keyed by short name.
type Registry struct {
	ask  map[string]AskApproach
	chat map[string]ChatApproach
}

// NewRegistry wires the approaches against the given index and LLM client
func NewRegistry(index ports.SearchIndex, llmClient ports.LLMClient, logger *zap.Logger, opts Options) *Registry {
	return &Registry{
		ask: map[string]AskApproach{
			"rtr": NewRetrieveThenRead(index, llmClient, logger, opts),
			"rrr": NewReadRetrieveRead(index, llmClient, logger, opts),
			"rda": NewReadDecomposeAsk(index, llmClient, logger, opts),
		},
		chat: map[string]ChatApproach{
			"rrr": NewChatReadRetrieveRead(index, llmClient, logger, opts),
		},
	}
}

// Ask returns the ask approach registered under name
func (r *Registry) Ask(name string) (AskApproach, bool) {
	a, ok := r.ask[name]
	return a, ok
}

// Chat returns the chat approach registered under name
func (r *Registry) Chat(name string) (ChatApproach, bool) {
	c, ok := r.chat[name]
	return c, ok
}

// AskNames lists the registered ask approach names, sorted
func (r *Registry) AskNames() []string {
	names := make([]string, 0, len(r.ask))
	for name := range r.ask {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChatNames lists the registered chat approach names, sorted
func (r *Registry) ChatNames() []string {
	names := make([]string, 0, len(r.chat))
	for name := range r.chat {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// searchOptions builds index options from the per-request overrides.
func searchOptions(overrides domain.Overrides, defaultTop int) ports.SearchOptions {
	top := overrides.Top
	if top <= 0 {
		top = defaultTop
	}
	return ports.SearchOptions{
		Top:               top,
		ExcludeCategory:   overrides.ExcludeCategory,
		UseSemanticRanker: overrides.SemanticRanker,
	}
}

// temperature resolves the call temperature from overrides and defaults.
func temperature(overrides domain.Overrides, fallback float64) float64 {
	if overrides.Temperature > 0 {
		return overrides.Temperature
	}
	return fallback
}

// dataPoints renders sections as "sourcepage: content" citation lines.
func dataPoints(sections []domain.Section) []string {
	points := make([]string, 0, len(sections))
	for _, sec := range sections {
		content := strings.Join(strings.Fields(sec.Content), " ")
		points = append(points, fmt.Sprintf("%s: %s", sec.SourcePage, content))
	}
	return points
}
