package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

type wordStore interface {
	GetByIDs(ctx context.Context, ids []int64) ([]models.Word, error)
	FindUnseenForUser(ctx context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.Word, error)
}

type masteryStore interface {
	Get(ctx context.Context, userID uuid.UUID, wordID int64) (*models.MasteryRecord, error)
	Upsert(ctx context.Context, m *models.MasteryRecord) error
	ListLearning(ctx context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.MasteryRecord, error)
	TouchContact(ctx context.Context, userID uuid.UUID, wordIDs []int64, at time.Time) error
	ListWeakest(ctx context.Context, userID uuid.UUID, n int) ([]repository.WeakWord, error)
	CountByUser(ctx context.Context, userID uuid.UUID, scoreLessThan *int) (int, error)
	SetScore(ctx context.Context, userID uuid.UUID, wordID int64, score int) error
}

type learningStateStore interface {
	GetLearningState(ctx context.Context, userID uuid.UUID) (*models.LearningState, error)
	SaveLearningState(ctx context.Context, s *models.LearningState) error
	TryUnlockArticles(ctx context.Context, userID uuid.UUID, threshold int) (bool, error)
}

type articleStore interface {
	Create(ctx context.Context, a *models.Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Article, error)
	OldestReady(ctx context.Context, userID uuid.UUID) (*models.Article, error)
	CountReady(ctx context.Context, userID uuid.UUID) (int, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	UpdateWordBank(ctx context.Context, id uuid.UUID, bank models.WordBank) error
}

type templateStore interface {
	Random(ctx context.Context) (*models.ArticleTemplate, error)
}

type txRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ArticleScheduler asks for count new articles for a user without waiting for them.
type ArticleScheduler interface {
	ScheduleArticles(ctx context.Context, userID uuid.UUID, count int, reason string) error
}
