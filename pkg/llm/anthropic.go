package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/querypilot/engine/pkg/retry"
)

// AnthropicClient generates completions through the Anthropic Messages API.
// Anthropic has no embedding endpoint, so this client only serves generation.
type AnthropicClient struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewAnthropicClient creates a generation client for Anthropic models.
func NewAnthropicClient(apiKey, model string, timeout time.Duration, logger *zap.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &AnthropicClient{
		client:  anthropic.NewClient(apiKey),
		model:   model,
		timeout: timeout,
		logger:  logger.Named("anthropic"),
	}, nil
}

// GenerateResponse returns the first text block of the model reply.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	temp := float32(temperature)
	start := time.Now()
	resp, err := retry.DoWithResult(ctx, nil, func() (anthropic.MessagesResponse, error) {
		return c.client.CreateMessages(ctx, anthropic.MessagesRequest{
			Model:       anthropic.Model(c.model),
			System:      systemMessage,
			MaxTokens:   2048,
			Temperature: &temp,
			Messages: []anthropic.Message{
				anthropic.NewUserTextMessage(prompt),
			},
		})
	})
	if err != nil {
		c.logger.Error("Anthropic request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("create messages: %w", err)
	}

	var b strings.Builder
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			b.WriteString(*content.Text)
		}
	}

	c.logger.Info("Anthropic request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return strings.TrimSpace(b.String()), nil
}

// GetModel returns the configured model name.
func (c *AnthropicClient) GetModel() string {
	return c.model
}
