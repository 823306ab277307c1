// Package anthropic implements the LLM client on the Anthropic Messages
// API. The bearer token is fetched from the token source on every call so
// short-lived credentials stay valid.
package anthropic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thomasbjerke/IngestionBaard/internal/domain"
	"github.com/Thomasbjerke/IngestionBaard/internal/ports"
	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
	"go.uber.org/zap"
)

// Client implements ports.LLMClient against the Anthropic API
type Client struct {
	client  anthropic.Client
	tokens  ports.TokenSource
	metrics ports.MetricsCollector
	logger  *zap.Logger
}

// NewClient creates an Anthropic LLM client
func NewClient(tokens ports.TokenSource, metrics ports.MetricsCollector, logger *zap.Logger) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	return &Client{
		client:  anthropic.NewClient(),
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Complete runs one completion call (ports.LLMClient interface)
func (c *Client) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get API token: %w", err)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: int64(req.MaxTokens),
		Messages:  toMessageParams(req.Messages),
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{
			Text: req.System,
			Type: constant.ValueOf[constant.Text]().Default(),
		}}
	}
	if len(req.Stop) > 0 {
		params.StopSequences = req.Stop
	}

	start := time.Now()
	message, err := c.client.Messages.New(ctx, params, option.WithAPIKey(token.Token))
	duration := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	resp := &domain.CompletionResponse{
		Content:      text.String(),
		Model:        req.Model,
		StopReason:   string(message.StopReason),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}

	if c.metrics != nil {
		c.metrics.RecordLLMCall(req.Model, resp.InputTokens, resp.OutputTokens, duration)
	}

	c.logger.Debug("completion finished",
		zap.String("model", req.Model),
		zap.Int("input_tokens", resp.InputTokens),
		zap.Int("output_tokens", resp.OutputTokens),
		zap.Duration("duration", duration))

	return resp, nil
}

// toMessageParams converts domain messages to the SDK message format
func toMessageParams(messages []domain.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		block := anthropic.NewTextBlock(msg.Content)
		switch msg.Role {
		case "assistant":
			params = append(params, anthropic.NewAssistantMessage(block))
		default:
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}
