package approach

import (
	"context"
	"fmt"
	"strings"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	"go.uber.org/zap"
)

// chatQueryPrompt turns the chat history into a standalone search query.
const chatQueryPrompt = `Generate a search query for the document index from the conversation and the new question.
Do not include source file names or document names in the query.
Do not enclose the query in quotes.
Return only the query text. If no search is needed, return 0.`

// chatAnswerPrompt grounds the chat reply on the retrieved sources.
const chatAnswerPrompt = `You are an assistant helping employees with questions about their company documents.
Answer only with facts from the sources below. Each source has a name followed by a colon and the actual information. Always include the source name for each fact you use in the response.
If the sources do not contain the answer, say you don't know.`

// chatFollowupPrompt is appended when the caller wants suggested
// follow-up questions.
const chatFollowupPrompt = `
After the answer, suggest up to three brief follow-up questions the user could ask next. Enclose each follow-up question in double angle brackets, like <<Is dental covered?>>.`

// ChatReadRetrieveRead is the chat variant: derive a query from the
// history, retrieve, then answer in context.
type ChatReadRetrieveRead struct {
	index     ports.SearchIndex
	llmClient ports.LLMClient
	logger    *zap.Logger
	opts      Options
}

// NewChatReadRetrieveRead creates the "rrr" chat approach
func NewChatReadRetrieveRead(index ports.SearchIndex, llmClient ports.LLMClient, logger *zap.Logger, opts Options) *ChatReadRetrieveRead {
	return &ChatReadRetrieveRead{
		index:     index,
		llmClient: llmClient,
		logger:    logger,
		opts:      opts,
	}
}

// Run answers the last question of the history (ChatApproach interface)
func (a *ChatReadRetrieveRead) Run(ctx context.Context, history []domain.ChatTurn, overrides domain.Overrides) (*domain.Answer, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("chat history is empty")
	}
	question := strings.TrimSpace(history[len(history)-1].User)
	if question == "" {
		return nil, fmt.Errorf("last history turn has no user message")
	}

	// Step 1: standalone search query from the conversation
	query, err := a.generateQuery(ctx, history, question, overrides)
	if err != nil {
		return nil, err
	}

	// Step 2: retrieval
	result, err := a.index.Search(ctx, query, searchOptions(overrides, a.opts.DefaultTop))
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	points := dataPoints(result.Sections)

	// Step 3: grounded reply in conversation context
	system := chatAnswerPrompt
	if overrides.PromptTemplate != "" {
		system = overrides.PromptTemplate
	}
	if overrides.SuggestFollowupQuestions {
		system += chatFollowupPrompt
	}
	system += "\n\nSources:\n" + strings.Join(points, "\n")

	resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      system,
		Messages:    historyMessages(history),
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   a.opts.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	a.logger.Debug("chat answered",
		zap.String("search_query", query),
		zap.Int("sources", len(points)))

	return &domain.Answer{
		Answer:     strings.TrimSpace(resp.Content),
		Thoughts:   fmt.Sprintf("Searched for:\n%s\n\nPrompt:\n%s", query, system),
		DataPoints: points,
	}, nil
}

// generateQuery derives the search query, falling back to the raw
// question when the model declines.
func (a *ChatReadRetrieveRead) generateQuery(ctx context.Context, history []domain.ChatTurn, question string, overrides domain.Overrides) (string, error) {
	var convo strings.Builder
	for _, turn := range history[:len(history)-1] {
		convo.WriteString("user: " + turn.User + "\n")
		if turn.Bot != "" {
			convo.WriteString("assistant: " + turn.Bot + "\n")
		}
	}
	convo.WriteString("New question: " + question)

	resp, err := a.llmClient.Complete(ctx, &domain.CompletionRequest{
		Model:       a.opts.Model,
		System:      chatQueryPrompt,
		Messages:    []domain.Message{{Role: "user", Content: convo.String()}},
		Temperature: temperature(overrides, a.opts.Temperature),
		MaxTokens:   128,
	})
	if err != nil {
		return "", fmt.Errorf("query generation failed: %w", err)
	}

	query := strings.Trim(strings.TrimSpace(resp.Content), `"`)
	if query == "" || query == "0" {
		query = question
	}
	return query, nil
}

// historyMessages converts chat turns into alternating LLM messages.
func historyMessages(history []domain.ChatTurn) []domain.Message {
	messages := make([]domain.Message, 0, len(history)*2)
	for _, turn := range history {
		if turn.User != "" {
			messages = append(messages, domain.Message{Role: "user", Content: turn.User})
		}
		if turn.Bot != "" {
			messages = append(messages, domain.Message{Role: "assistant", Content: turn.Bot})
		}
	}
	return messages
}
