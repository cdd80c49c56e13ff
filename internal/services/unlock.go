package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

const (
	UnlockThreshold = 16
	UnlockBatchSize = 2
)

// UnlockGate opens personalized articles once a user has learned enough words.
// The flag is one-way; the welcome batch is requested by whichever caller flips it.
type UnlockGate struct {
	users     learningStateStore
	scheduler ArticleScheduler
}

func NewUnlockGate(users learningStateStore, scheduler ArticleScheduler) *UnlockGate {
	return &UnlockGate{users: users, scheduler: scheduler}
}

// CheckAndMaybeUnlock reports whether this call unlocked the user.
func (g *UnlockGate) CheckAndMaybeUnlock(ctx context.Context, userID uuid.UUID) (bool, error) {
	state, err := g.users.GetLearningState(ctx, userID)
	if err != nil {
		return false, userLookupError(err)
	}
	if state.ArticlesUnlocked || state.TotalWordsLearned < UnlockThreshold {
		return false, nil
	}

	flipped, err := g.users.TryUnlockArticles(ctx, userID, UnlockThreshold)
	if err != nil {
		return false, fmt.Errorf("unlock articles: %w", err)
	}
	if !flipped {
		return false, nil
	}

	slog.Info("articles unlocked", "user_id", userID, "words_learned", state.TotalWordsLearned)

	if g.scheduler != nil {
		if err := g.scheduler.ScheduleArticles(ctx, userID, UnlockBatchSize, "unlock"); err != nil {
			slog.Error("failed to schedule unlock articles", "user_id", userID, "err", err)
		}
	}
	return true, nil
}

func (g *UnlockGate) IsUnlocked(ctx context.Context, userID uuid.UUID) (bool, error) {
	state, err := g.users.GetLearningState(ctx, userID)
	if err != nil {
		return false, userLookupError(err)
	}
	return state.ArticlesUnlocked, nil
}
