package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiGenerator struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	throttle *throttle
}

func NewGeminiGenerator(apiKey, modelName string, concurrentReqs, requestsPerMinute int) (*GeminiGenerator, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(articleSystemPrompt))

	return &GeminiGenerator{
		client:   client,
		model:    model,
		throttle: newThrottle(concurrentReqs, requestsPerMinute),
	}, nil
}

func (g *GeminiGenerator) Close() {
	g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedArticle, error) {
	if err := g.throttle.acquire(ctx); err != nil {
		return nil, fmt.Errorf("waiting for Gemini slot: %w", err)
	}
	defer g.throttle.release()

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildArticlePrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			slog.Warn("Gemini stopped early", "candidate", i, "finish_reason", cand.FinishReason.String())
		}
	}

	raw := strings.TrimSpace(extractText(resp))
	if raw == "" {
		return nil, fmt.Errorf("Gemini returned empty text")
	}
	return parseArticleJSON(raw)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
