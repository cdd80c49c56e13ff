package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                uuid.UUID  `json:"id"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"`
	Nickname          string     `json:"nickname"`
	Coins             int        `json:"coins"`
	Gems              int        `json:"gems"`
	StreakDays        int        `json:"streak_days"`
	LastCheckinDate   *time.Time `json:"last_checkin_date"`
	TotalCheckinDays  int        `json:"total_checkin_days"`
	TotalWordsLearned int        `json:"total_words_learned"`
	WordsMastered     int        `json:"words_mastered"`
	ArticlesUnlocked  bool       `json:"articles_unlocked"`
	CreatedAt         time.Time  `json:"created_at"`
	LastLoginAt       *time.Time `json:"last_login_at"`
}

type RegisterRequest struct {
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type CheckInResult struct {
	StreakDays       int    `json:"streakDays"`
	TotalCheckinDays int    `json:"totalCheckinDays"`
	CoinsReward      int    `json:"coinsReward"`
	GemsReward       int    `json:"gemsReward"`
	Coins            int    `json:"coins"`
	Gems             int    `json:"gems"`
	Message          string `json:"message"`
}

type UserStats struct {
	StreakDays        int  `json:"streakDays"`
	HasCheckedInToday bool `json:"hasCheckedInToday"`
	Coins             int  `json:"coins"`
	Gems              int  `json:"gems"`
	TotalWordsLearned int  `json:"totalWordsLearned"`
	WordsMastered     int  `json:"wordsMastered"`
	TotalCheckinDays  int  `json:"totalCheckinDays"`
}

type Leaderboard struct {
	Rank       int `json:"rank"`
	Exp        int `json:"exp"`
	TotalUsers int `json:"totalUsers"`
}

type VocabularyItem struct {
	ID              int64      `json:"id"`
	Word            string     `json:"word"`
	Phonetic        string     `json:"phonetic"`
	Meaning         string     `json:"meaning"`
	ExampleSentence string     `json:"exampleSentence"`
	MasteryScore    int        `json:"masteryScore"`
	CorrectCount    int        `json:"correctCount"`
	WrongCount      int        `json:"wrongCount"`
	LastReviewedAt  *time.Time `json:"lastReviewedAt"`
	Level           string     `json:"level"`
	Status          string     `json:"status"`
}

type VocabularyPage struct {
	Words       []VocabularyItem `json:"words"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int              `json:"totalPages"`
	TotalWords  int              `json:"totalWords"`
	PageSize    int              `json:"pageSize"`
}

type VocabularyStats struct {
	TotalWords    int `json:"totalWords"`
	MasteredWords int `json:"masteredWords"`
	LearningWords int `json:"learningWords"`
	WeakWords     int `json:"weakWords"`
}
