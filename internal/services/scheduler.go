package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

const (
	DefaultSessionSize = 20
	MaxSessionSize     = 50
)

// ReviewScheduler decides which words a user sees next and scores their answers.
type ReviewScheduler struct {
	words   wordStore
	mastery masteryStore
	users   learningStateStore
	tx      txRunner
	locker  UserLocker
	gate    *UnlockGate
	now     func() time.Time
}

func NewReviewScheduler(words wordStore, mastery masteryStore, users learningStateStore, tx txRunner, locker UserLocker, gate *UnlockGate) *ReviewScheduler {
	return &ReviewScheduler{
		words:   words,
		mastery: mastery,
		users:   users,
		tx:      tx,
		locker:  locker,
		gate:    gate,
		now:     time.Now,
	}
}

// GetSession returns up to limit words: due reviews first, then unseen words.
// A short or empty result means the user has nothing left to study.
func (s *ReviewScheduler) GetSession(ctx context.Context, userID uuid.UUID, limit int) ([]models.Word, error) {
	if limit <= 0 {
		limit = DefaultSessionSize
	}
	limit = min(limit, MaxSessionSize)

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var session []models.Word
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.users.GetLearningState(ctx, userID)
		if err != nil {
			return userLookupError(err)
		}

		window := NewRecentWindow(state.RecentWordIDs)
		exclude := window.IDs()

		due, err := s.mastery.ListLearning(ctx, userID, exclude, limit)
		if err != nil {
			return fmt.Errorf("list review candidates: %w", err)
		}

		ids := make([]int64, 0, len(due))
		for _, m := range due {
			ids = append(ids, m.WordID)
		}
		catalog, err := s.words.GetByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("resolve review words: %w", err)
		}
		byID := make(map[int64]models.Word, len(catalog))
		for _, w := range catalog {
			byID[w.ID] = w
		}

		session = make([]models.Word, 0, limit)
		touched := make([]int64, 0, len(due))
		for _, m := range due {
			w, ok := byID[m.WordID]
			if !ok {
				continue
			}
			session = append(session, w)
			touched = append(touched, w.ID)
			window.Insert(w.ID)
		}

		if err := s.mastery.TouchContact(ctx, userID, touched, s.now()); err != nil {
			return fmt.Errorf("touch review words: %w", err)
		}

		if len(session) < limit {
			fresh, err := s.words.FindUnseenForUser(ctx, userID, exclude, limit-len(session))
			if err != nil {
				return fmt.Errorf("find new words: %w", err)
			}
			for _, w := range fresh {
				session = append(session, w)
				window.Insert(w.ID)
			}
		}

		state.RecentWordIDs = window.IDs()
		return s.users.SaveLearningState(ctx, state)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SubmitResult records one answer and returns the updated record. The unlock
// check runs after the answer is committed and cannot undo it.
func (s *ReviewScheduler) SubmitResult(ctx context.Context, userID uuid.UUID, wordID int64, correct bool) (*models.MasteryRecord, error) {
	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}

	var rec *models.MasteryRecord
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		state, err := s.users.GetLearningState(ctx, userID)
		if err != nil {
			return userLookupError(err)
		}

		now := s.now()
		existing, err := s.mastery.Get(ctx, userID, wordID)
		first := errors.Is(err, repository.ErrNotFound)
		switch {
		case first:
			found, err := s.words.GetByIDs(ctx, []int64{wordID})
			if err != nil {
				return fmt.Errorf("resolve word: %w", err)
			}
			if len(found) == 0 {
				return newError(KindNotFound, "Word not found")
			}
			rec = &models.MasteryRecord{
				UserID:         userID,
				WordID:         wordID,
				Status:         models.MasteryLearning,
				FirstLearnedAt: now,
			}
		case err != nil:
			return fmt.Errorf("load mastery: %w", err)
		default:
			rec = existing
		}

		wasMastered := rec.Status == models.MasteryMastered
		applyReviewAnswer(rec, first, correct, state.LearningIndex, now)

		if first {
			state.TotalWordsLearned++
		}
		if !wasMastered && rec.Status == models.MasteryMastered {
			state.WordsMastered++
		}
		state.LearningIndex++

		window := NewRecentWindow(state.RecentWordIDs)
		window.Insert(wordID)
		state.RecentWordIDs = window.IDs()

		if err := s.mastery.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("save mastery: %w", err)
		}
		return s.users.SaveLearningState(ctx, state)
	})
	unlock()
	if err != nil {
		return nil, err
	}

	if s.gate != nil {
		if _, err := s.gate.CheckAndMaybeUnlock(ctx, userID); err != nil {
			slog.Error("unlock check failed", "user_id", userID, "err", err)
		}
	}

	return rec, nil
}

// StrangeWordThreshold is the score under which a word still counts as unfamiliar.
const StrangeWordThreshold = 6

func (s *ReviewScheduler) StrangeWordCount(ctx context.Context, userID uuid.UUID) (int, error) {
	threshold := StrangeWordThreshold
	return s.mastery.CountByUser(ctx, userID, &threshold)
}

func userLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return wrapError(KindNotFound, "User not found", err)
	}
	return fmt.Errorf("load learning state: %w", err)
}
