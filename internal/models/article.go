package models

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type ArticleStatus string

const (
	ArticleReady     ArticleStatus = "READY"
	ArticleCompleted ArticleStatus = "COMPLETED"
)

type WordState string

const (
	WordStateUnused  WordState = "unused"
	WordStateCorrect WordState = "correct"
	WordStateWrong   WordState = "wrong"
)

func (s WordState) Valid() bool {
	switch s {
	case WordStateUnused, WordStateCorrect, WordStateWrong:
		return true
	}
	return false
}

type WordBankEntry struct {
	WordID       *int64    `json:"id,omitempty"`
	Word         string    `json:"word"`
	Meaning      string    `json:"meaning"`
	MasteryScore int       `json:"masteryScore"`
	State        WordState `json:"state"`
}

// WordBank is stored as a self-contained JSONB document on the article row.
// A malformed document reads back as an empty bank instead of failing the read.
type WordBank []WordBankEntry

func (b WordBank) Validate() error {
	for i, e := range b {
		if strings.TrimSpace(e.Word) == "" {
			return fmt.Errorf("word bank entry %d: empty word", i)
		}
		if !e.State.Valid() {
			return fmt.Errorf("word bank entry %d: unknown state %q", i, e.State)
		}
		if e.MasteryScore < 0 {
			return fmt.Errorf("word bank entry %d: negative score", i)
		}
	}
	return nil
}

// Find returns the index of the entry matching word case-insensitively, or -1.
func (b WordBank) Find(word string) int {
	word = strings.TrimSpace(word)
	for i, e := range b {
		if strings.EqualFold(e.Word, word) {
			return i
		}
	}
	return -1
}

func (b WordBank) Clone() WordBank {
	out := make(WordBank, len(b))
	copy(out, b)
	return out
}

// ParseWordBank decodes raw JSON into a validated bank.
func ParseWordBank(raw []byte) WordBank {
	if len(raw) == 0 {
		return WordBank{}
	}
	var bank WordBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		slog.Warn("discarding unreadable word bank", "err", err)
		return WordBank{}
	}
	if err := bank.Validate(); err != nil {
		slog.Warn("discarding invalid word bank", "err", err)
		return WordBank{}
	}
	if bank == nil {
		return WordBank{}
	}
	return bank
}

// JSON encodes the bank for storage; a nil bank is stored as [].
func (b WordBank) JSON() []byte {
	if b == nil {
		b = WordBank{}
	}
	data, _ := json.Marshal(b)
	return data
}

type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(strings.ToLower(strings.TrimSpace(s))) {
	case "", DifficultyIntermediate:
		return DifficultyIntermediate, true
	case DifficultyBeginner:
		return DifficultyBeginner, true
	case DifficultyAdvanced:
		return DifficultyAdvanced, true
	}
	return "", false
}

type Article struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	Title       string        `json:"title"`
	Body        string        `json:"content"`
	Difficulty  Difficulty    `json:"difficulty"`
	WordBank    WordBank      `json:"wordBank"`
	Status      ArticleStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at"`
}

type ArticleTemplate struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"content"`
	WordBank   WordBank   `json:"wordBank"`
	Difficulty Difficulty `json:"difficulty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ArticleResponse is what a reader receives, for both template and personal articles.
type ArticleResponse struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Difficulty Difficulty `json:"difficulty"`
	WordBank   WordBank   `json:"wordBank"`
}

type WordProgressRequest struct {
	Word  string    `json:"word"`
	State WordState `json:"state"`
}
