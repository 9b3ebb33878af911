// Package llm talks to OpenAI compatible chat and embedding endpoints.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/liliang-cn/ragdesk/internal/config"
	"github.com/liliang-cn/ragdesk/internal/domain"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

// Message is a single chat turn sent to the model
type Message struct {
	Role    string
	Content string
}

// Options tune one completion call
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client wraps a chat completion endpoint (Groq by default)
type Client struct {
	client   openai.Client
	model    string
	defaults Options
	logger   *zap.Logger
}

// NewClient creates a chat client from configuration
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:    cfg.Model,
		defaults: Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens},
		logger:   logger,
	}
}

// Defaults returns the configured sampling options
func (c *Client) Defaults() Options {
	return c.defaults
}

func (c *Client) params(messages []Message, opts Options) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(opts.Temperature),
		MaxTokens:   openai.Int(int64(opts.MaxTokens)),
		TopP:        openai.Float(1),
	}
}

// Complete returns the model's reply to messages
func (c *Client) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, c.params(messages, opts))
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: chat completion returned no choices", domain.ErrUpstream)
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)),
	)

	return resp.Choices[0].Message.Content, nil
}

// Stream calls onDelta for every content fragment and returns the full reply
func (c *Client) Stream(ctx context.Context, messages []Message, opts Options, onDelta func(string) error) (string, error) {
	stream := c.client.Chat.Completions.NewStreaming(ctx, c.params(messages, opts))
	defer stream.Close()

	var full []byte
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full = append(full, delta...)
		if err := onDelta(delta); err != nil {
			return string(full), err
		}
	}
	if err := stream.Err(); err != nil {
		return string(full), fmt.Errorf("%w: chat stream: %v", domain.ErrUpstream, err)
	}

	return string(full), nil
}
