package approach

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	indexmemory "github.com/Thomasbjerke/IngestionBaard/pkg/adapters/index/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLLM replays scripted completions and records the requests it saw.
type fakeLLM struct {
	responses []string
	calls     []*domain.CompletionRequest
}

func (f *fakeLLM) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	f.calls = append(f.calls, req)
	if len(f.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	content := f.responses[0]
	f.responses = f.responses[1:]
	return &domain.CompletionResponse{
		Content:      content,
		Model:        req.Model,
		InputTokens:  10,
		OutputTokens: 20,
	}, nil
}

func testIndex(t *testing.T) *indexmemory.Index {
	t.Helper()

	idx := indexmemory.NewIndex()
	err := idx.Add(context.Background(), []domain.Section{
		{ID: "plan-0", Content: "the health plan covers dental cleanings twice a year", SourcePage: "plan-0", SourceFile: "plan"},
		{ID: "plan-1", Content: "vision exams are covered once per year", SourcePage: "plan-1", SourceFile: "plan"},
		{ID: "handbook-0", Content: "employees accrue vacation days monthly", SourcePage: "handbook-0", SourceFile: "handbook", Category: "hr"},
	})
	require.NoError(t, err)
	return idx
}

func testOptions() Options {
	return Options{
		Model:       "claude-3-5-sonnet-20241022",
		Temperature: 0.3,
		MaxTokens:   1024,
		DefaultTop:  3,
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(testIndex(t), &fakeLLM{}, zap.NewNop(), testOptions())

	for _, name := range []string{"rtr", "rrr", "rda"} {
		_, ok := reg.Ask(name)
		assert.True(t, ok, name)
	}
	_, ok := reg.Ask("nope")
	assert.False(t, ok)

	_, ok = reg.Chat("rrr")
	assert.True(t, ok)
	_, ok = reg.Chat("rtr")
	assert.False(t, ok)
}

func TestRetrieveThenRead(t *testing.T) {
	llm := &fakeLLM{responses: []string{"Dental cleanings are covered twice a year [plan-0]."}}
	a := NewRetrieveThenRead(testIndex(t), llm, zap.NewNop(), testOptions())

	answer, err := a.Run(context.Background(), "is dental covered", domain.Overrides{})
	require.NoError(t, err)

	assert.Contains(t, answer.Answer, "plan-0")
	require.NotEmpty(t, answer.DataPoints)
	assert.Contains(t, strings.Join(answer.DataPoints, "\n"), "plan-0:")

	require.Len(t, llm.calls, 1)
	assert.Equal(t, retrieveThenReadPrompt, llm.calls[0].System)
	assert.Contains(t, llm.calls[0].Messages[0].Content, "is dental covered")
}

func TestRetrieveThenReadPromptTemplateOverride(t *testing.T) {
	llm := &fakeLLM{responses: []string{"ok"}}
	a := NewRetrieveThenRead(testIndex(t), llm, zap.NewNop(), testOptions())

	_, err := a.Run(context.Background(), "is dental covered", domain.Overrides{
		PromptTemplate: "Answer in Norwegian.",
		Temperature:    0.9,
	})
	require.NoError(t, err)

	require.Len(t, llm.calls, 1)
	assert.Equal(t, "Answer in Norwegian.", llm.calls[0].System)
	assert.Equal(t, 0.9, llm.calls[0].Temperature)
}

func TestReadRetrieveRead(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"I should look up the dental benefit.\nSearch[dental cleanings]",
		"Answer: Dental cleanings are covered twice a year [plan-0].",
	}}
	a := NewReadRetrieveRead(testIndex(t), llm, zap.NewNop(), testOptions())

	answer, err := a.Run(context.Background(), "is dental covered", domain.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "Dental cleanings are covered twice a year [plan-0].", answer.Answer)
	require.NotEmpty(t, answer.DataPoints)
	assert.Contains(t, answer.DataPoints[0], "plan-0:")
	assert.Contains(t, answer.Thoughts, "Search[dental cleanings]")
	assert.Contains(t, answer.Thoughts, "Observation:")
	assert.Len(t, llm.calls, 2)
}

func TestReadRetrieveReadPlainResponseIsAnswer(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I don't know."}}
	a := NewReadRetrieveRead(testIndex(t), llm, zap.NewNop(), testOptions())

	answer, err := a.Run(context.Background(), "what is the meaning of life", domain.Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "I don't know.", answer.Answer)
	assert.Empty(t, answer.DataPoints)
	assert.Len(t, llm.calls, 1)
}

func TestReadDecomposeAsk(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"dental cleanings\nvision exams",
		"Dental is covered twice a year [plan-0] and vision once a year [plan-1].",
	}}
	a := NewReadDecomposeAsk(testIndex(t), llm, zap.NewNop(), testOptions())

	answer, err := a.Run(context.Background(), "what dental and vision benefits do I have", domain.Overrides{})
	require.NoError(t, err)

	assert.Contains(t, answer.Thoughts, "- dental cleanings")
	assert.Contains(t, answer.Thoughts, "- vision exams")
	assert.Contains(t, answer.Answer, "plan-1")
	require.NotEmpty(t, answer.DataPoints)

	// No data point appears twice even when sub-queries overlap
	seen := make(map[string]bool)
	for _, p := range answer.DataPoints {
		assert.False(t, seen[p], p)
		seen[p] = true
	}
}

func TestParseQueries(t *testing.T) {
	queries := parseQueries("1. dental coverage\n- vision exams\n\n2) vacation days\nextra line")
	assert.Equal(t, []string{"dental coverage", "vision exams", "vacation days"}, queries)
}

func TestChatReadRetrieveRead(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"dental cleanings coverage",
		"Yes, cleanings are covered twice a year [plan-0]. <<Is vision covered?>>",
	}}
	a := NewChatReadRetrieveRead(testIndex(t), llm, zap.NewNop(), testOptions())

	history := []domain.ChatTurn{
		{User: "what benefits do I have", Bot: "You have health, dental and vision benefits."},
		{User: "is dental covered"},
	}

	answer, err := a.Run(context.Background(), history, domain.Overrides{SuggestFollowupQuestions: true})
	require.NoError(t, err)

	assert.Contains(t, answer.Answer, "plan-0")
	assert.Contains(t, answer.Thoughts, "dental cleanings coverage")
	require.NotEmpty(t, answer.DataPoints)

	require.Len(t, llm.calls, 2)
	assert.Contains(t, llm.calls[1].System, "<<")
	assert.Contains(t, llm.calls[1].System, "Sources:")

	// History is replayed as alternating turns
	roles := make([]string, 0, len(llm.calls[1].Messages))
	for _, m := range llm.calls[1].Messages {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
}

func TestChatQueryFallsBackToQuestion(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"0",
		"Cleanings are covered twice a year [plan-0].",
	}}
	a := NewChatReadRetrieveRead(testIndex(t), llm, zap.NewNop(), testOptions())

	history := []domain.ChatTurn{{User: "is dental covered"}}
	answer, err := a.Run(context.Background(), history, domain.Overrides{})
	require.NoError(t, err)
	assert.NotEmpty(t, answer.DataPoints)
}

func TestChatEmptyHistory(t *testing.T) {
	a := NewChatReadRetrieveRead(testIndex(t), &fakeLLM{}, zap.NewNop(), testOptions())

	_, err := a.Run(context.Background(), nil, domain.Overrides{})
	assert.Error(t, err)

	_, err = a.Run(context.Background(), []domain.ChatTurn{{User: "  "}}, domain.Overrides{})
	assert.Error(t, err)
}

func TestDataPointsFlattenWhitespace(t *testing.T) {
	points := dataPoints([]domain.Section{
		{SourcePage: "plan-0", Content: "line one\nline  two"},
	})
	require.Len(t, points, 1)
	assert.Equal(t, "plan-0: line one line two", points[0])
}

func TestExtractAnswer(t *testing.T) {
	answer, ok := extractAnswer("Thought about it.\nAnswer: yes it is")
	require.True(t, ok)
	assert.Equal(t, "yes it is", answer)

	_, ok = extractAnswer("Search[something]")
	assert.False(t, ok)
}

func TestSearchOptionsDefaults(t *testing.T) {
	opts := searchOptions(domain.Overrides{}, 3)
	assert.Equal(t, 3, opts.Top)

	opts = searchOptions(domain.Overrides{Top: 7, ExcludeCategory: "hr", SemanticRanker: true}, 3)
	assert.Equal(t, 7, opts.Top)
	assert.Equal(t, "hr", opts.ExcludeCategory)
	assert.True(t, opts.UseSemanticRanker)
}
