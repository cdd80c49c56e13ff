package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
)

const (
	DefaultVocabularyPageSize = 50
	MaxVocabularyPageSize     = 200

	// LearningFloor splits unmastered words into weak and learning.
	LearningFloor = 4
)

type vocabularyStore interface {
	Page(ctx context.Context, userID uuid.UUID, page, size int) ([]models.VocabularyItem, int, error)
	CountBuckets(ctx context.Context, userID uuid.UUID, learningFloor int) (models.VocabularyStats, error)
}

type VocabularyService struct {
	mastery vocabularyStore
}

func NewVocabularyService(mastery vocabularyStore) *VocabularyService {
	return &VocabularyService{mastery: mastery}
}

func (s *VocabularyService) Page(ctx context.Context, userID uuid.UUID, page, size int) (*models.VocabularyPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultVocabularyPageSize
	}
	size = min(size, MaxVocabularyPageSize)

	items, total, err := s.mastery.Page(ctx, userID, page, size)
	if err != nil {
		return nil, fmt.Errorf("list vocabulary: %w", err)
	}
	for i := range items {
		items[i].Level = masteryLevel(items[i].MasteryScore, models.MasteryStatus(items[i].Status))
	}

	return &models.VocabularyPage{
		Words:       items,
		CurrentPage: page,
		TotalPages:  (total + size - 1) / size,
		TotalWords:  total,
		PageSize:    size,
	}, nil
}

func (s *VocabularyService) Stats(ctx context.Context, userID uuid.UUID) (*models.VocabularyStats, error) {
	stats, err := s.mastery.CountBuckets(ctx, userID, LearningFloor)
	if err != nil {
		return nil, fmt.Errorf("count vocabulary: %w", err)
	}
	return &stats, nil
}

func masteryLevel(score int, status models.MasteryStatus) string {
	switch {
	case status == models.MasteryMastered:
		return "mastered"
	case score >= LearningFloor:
		return "learning"
	case score >= 1:
		return "familiar"
	default:
		return "new"
	}
}
