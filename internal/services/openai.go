package services

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator talks to any OpenAI-compatible chat endpoint
// (OpenAI, DashScope/Qwen compatible mode, DeepSeek).
type OpenAIGenerator struct {
	client   *openai.Client
	model    string
	throttle *throttle
}

func NewOpenAIGenerator(apiKey, baseURL, model string, concurrentReqs, requestsPerMinute int) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		throttle: newThrottle(concurrentReqs, requestsPerMinute),
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedArticle, error) {
	if err := g.throttle.acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for completion slot: %w", err)
	}
	defer g.throttle.release()

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: articleSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildArticlePrompt(req)},
		},
		Temperature: 0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty chat response")
	}
	return parseArticleJSON(resp.Choices[0].Message.Content)
}
