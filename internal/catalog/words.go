package catalog

import (
	"strings"

	"wordloop-backend/internal/models"
)

// Dedupe drops repeated headwords, compared case-insensitively, keeping the
// first occurrence. It reports how many rows were dropped.
func Dedupe(words []models.Word) ([]models.Word, int) {
	seen := make(map[string]bool, len(words))
	out := words[:0:0]
	for _, w := range words {
		key := strings.ToLower(strings.TrimSpace(w.Headword))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
	}
	return out, len(words) - len(out)
}
