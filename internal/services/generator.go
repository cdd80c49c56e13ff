package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wordloop-backend/internal/models"
)

type PromptWord struct {
	Word    string
	Meaning string
}

type GenerationRequest struct {
	Words      []PromptWord
	Difficulty models.Difficulty
}

type GeneratedArticle struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ContentGenerator writes a short text using every requested word exactly once,
// each marked as [(word)].
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GeneratedArticle, error)
}

// throttle bounds concurrent calls with a slot channel and spaces them with a rate limiter.
type throttle struct {
	slots   chan struct{}
	limiter *rate.Limiter
}

func newThrottle(concurrent, perMinute int) *throttle {
	if concurrent <= 0 {
		concurrent = 1
	}
	slots := make(chan struct{}, concurrent)
	for i := 0; i < concurrent; i++ {
		slots <- struct{}{}
	}

	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &throttle{slots: slots, limiter: rate.NewLimiter(limit, concurrent)}
}

func (t *throttle) acquire(ctx context.Context) error {
	select {
	case <-t.slots:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := t.limiter.Wait(ctx); err != nil {
		t.release()
		return err
	}
	return nil
}

func (t *throttle) release() {
	t.slots <- struct{}{}
}

const articleSystemPrompt = "You are a professional writer of English reading material for language learners."

func buildArticlePrompt(req GenerationRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a short English article of about 300 words, with a title, using the following %d words.\n\n", len(req.Words))
	sb.WriteString("Requirements:\n")
	sb.WriteString("1. The topic is everyday study, personal growth or daily life, with a positive tone.\n")
	fmt.Fprintf(&sb, "2. Difficulty: %s.\n", difficultyDescription(req.Difficulty))
	sb.WriteString("3. Use each word exactly once in the body and mark it as [(word)], for example [(improve)].\n")
	sb.WriteString("4. The text must read naturally and the context should help the reader infer each word's meaning.\n")
	sb.WriteString("5. Return only JSON: {\"title\": \"...\", \"content\": \"...\"}\n\n")
	sb.WriteString("Words:\n")
	for i, w := range req.Words {
		fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, w.Word, w.Meaning)
	}
	return sb.String()
}

func difficultyDescription(d models.Difficulty) string {
	switch d {
	case models.DifficultyBeginner:
		return "beginner (simple sentences and common vocabulary)"
	case models.DifficultyAdvanced:
		return "advanced (complex sentences and richer vocabulary are fine)"
	default:
		return "intermediate (moderate sentence structure and vocabulary)"
	}
}

// parseArticleJSON strips markdown fences the model may wrap around its JSON.
func parseArticleJSON(raw string) (*GeneratedArticle, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var out GeneratedArticle
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("failed to parse article JSON: %w", err)
	}
	return &out, nil
}

var markerPattern = regexp.MustCompile(`\[\(([^()\[\]]+)\)\]`)

// validateGenerated checks that every requested word is marked exactly once.
func validateGenerated(art *GeneratedArticle, words []PromptWord) error {
	if art == nil || strings.TrimSpace(art.Title) == "" || strings.TrimSpace(art.Content) == "" {
		return fmt.Errorf("article is missing a title or body")
	}

	counts := make(map[string]int)
	for _, m := range markerPattern.FindAllStringSubmatch(art.Content, -1) {
		counts[strings.ToLower(strings.TrimSpace(m[1]))]++
	}

	for _, w := range words {
		switch n := counts[strings.ToLower(strings.TrimSpace(w.Word))]; n {
		case 1:
		case 0:
			return fmt.Errorf("word %q is not marked in the article", w.Word)
		default:
			return fmt.Errorf("word %q is marked %d times", w.Word, n)
		}
	}
	return nil
}
