package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"wordloop-backend/internal/models"
)

type templateFile struct {
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Difficulty string                 `json:"difficulty"`
	WordBank   []models.WordBankEntry `json:"wordBank"`
}

// ParseTemplates reads a JSON array of generic articles.
func ParseTemplates(r io.Reader) ([]models.ArticleTemplate, error) {
	var raw []templateFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}

	out := make([]models.ArticleTemplate, 0, len(raw))
	for i, t := range raw {
		if strings.TrimSpace(t.Title) == "" || strings.TrimSpace(t.Content) == "" {
			return nil, fmt.Errorf("template %d: title and content are required", i)
		}
		difficulty, ok := models.ParseDifficulty(t.Difficulty)
		if !ok {
			return nil, fmt.Errorf("template %d: unknown difficulty %q", i, t.Difficulty)
		}

		bank := make(models.WordBank, 0, len(t.WordBank))
		for _, e := range t.WordBank {
			e.WordID = nil
			e.State = models.WordStateUnused
			bank = append(bank, e)
		}
		if err := bank.Validate(); err != nil {
			return nil, fmt.Errorf("template %d: %w", i, err)
		}

		out = append(out, models.ArticleTemplate{
			Title:      strings.TrimSpace(t.Title),
			Body:       t.Content,
			Difficulty: difficulty,
			WordBank:   bank,
		})
	}
	return out, nil
}
