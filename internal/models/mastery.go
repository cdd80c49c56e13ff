package models

import (
	"time"

	"github.com/google/uuid"
)

type MasteryStatus string

const (
	MasteryLearning MasteryStatus = "LEARNING"
	MasteryMastered MasteryStatus = "MASTERED"
)

type MasteryRecord struct {
	UserID         uuid.UUID     `json:"user_id"`
	WordID         int64         `json:"word_id"`
	Score          int           `json:"mastery_score"`
	Status         MasteryStatus `json:"status"`
	QueuePosition  int64         `json:"queue_position"`
	LearnCount     int           `json:"learn_count"`
	CorrectCount   int           `json:"correct_count"`
	WrongCount     int           `json:"wrong_count"`
	FirstLearnedAt time.Time     `json:"first_learned_at"`
	LastReviewedAt *time.Time    `json:"last_reviewed_at"`
	LastContactAt  *time.Time    `json:"last_contact_at"`
	NextReviewAt   *time.Time    `json:"next_review_at"`
}

// LearningState is the part of the user row the scheduler reads and writes.
type LearningState struct {
	UserID            uuid.UUID `json:"user_id"`
	LearningIndex     int64     `json:"learning_index"`
	RecentWordIDs     []int64   `json:"recent_word_ids"`
	TotalWordsLearned int       `json:"total_words_learned"`
	WordsMastered     int       `json:"words_mastered"`
	ArticlesUnlocked  bool      `json:"articles_unlocked"`
}

type SubmitResultRequest struct {
	WordID    int64 `json:"wordId"`
	IsCorrect bool  `json:"isCorrect"`
}
