package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ent0n29/backtoback/internal/conversation"
)

// OpenAIConfig holds the settings for the chat-completion generator.
type OpenAIConfig struct {
	APIKey          string
	Model           string
	MaxTokens       int
	Temperature     float32
	PresencePenalty float32
	Timeout         time.Duration
}

// OpenAIGenerator produces agent text through the OpenAI chat completion
// API. Every call is timeout-bounded; the turn engine treats failures as
// recoverable.
type OpenAIGenerator struct {
	client          *openai.Client
	model           string
	maxTokens       int
	temperature     float32
	presencePenalty float32
	timeout         time.Duration
}

func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &OpenAIGenerator{
		client:          openai.NewClient(cfg.APIKey),
		model:           cfg.Model,
		maxTokens:       cfg.MaxTokens,
		temperature:     cfg.Temperature,
		presencePenalty: cfg.PresencePenalty,
		timeout:         cfg.Timeout,
	}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req conversation.GenerateRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(req)},
			{Role: openai.ChatMessageRoleUser, Content: UserPrompt(req)},
		},
		MaxTokens:       g.maxTokens,
		Temperature:     g.temperature,
		PresencePenalty: g.presencePenalty,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
