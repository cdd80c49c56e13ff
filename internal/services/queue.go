package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

const (
	ArticleModeGeneric = "generic"
	ArticleModeCustom  = "custom"

	ReadyFloor = 2
)

// ArticleQueue hands out reading material and keeps each user's READY backlog topped up.
type ArticleQueue struct {
	articles  articleStore
	templates templateStore
	mastery   masteryStore
	gate      *UnlockGate
	pipeline  *ArticlePipeline
	scheduler ArticleScheduler
	tx        txRunner
	locker    UserLocker
	inflight  singleflight.Group
	now       func() time.Time
}

func NewArticleQueue(
	articles articleStore,
	templates templateStore,
	mastery masteryStore,
	gate *UnlockGate,
	pipeline *ArticlePipeline,
	scheduler ArticleScheduler,
	tx txRunner,
	locker UserLocker,
) *ArticleQueue {
	return &ArticleQueue{
		articles:  articles,
		templates: templates,
		mastery:   mastery,
		gate:      gate,
		pipeline:  pipeline,
		scheduler: scheduler,
		tx:        tx,
		locker:    locker,
		now:       time.Now,
	}
}

func (q *ArticleQueue) GetNext(ctx context.Context, userID uuid.UUID, mode string) (*models.ArticleResponse, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ArticleModeGeneric:
		return q.nextGeneric(ctx)
	case ArticleModeCustom:
		return q.nextCustom(ctx, userID)
	default:
		return nil, newError(KindInvalidArgument, "Article type must be generic or custom")
	}
}

func (q *ArticleQueue) nextGeneric(ctx context.Context) (*models.ArticleResponse, error) {
	t, err := q.templates.Random(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindNoGenericArticles, "No generic articles are available")
	}
	if err != nil {
		return nil, fmt.Errorf("pick template: %w", err)
	}

	return &models.ArticleResponse{
		ID:         strconv.FormatInt(t.ID, 10),
		Type:       ArticleModeGeneric,
		Title:      t.Title,
		Content:    t.Body,
		Difficulty: t.Difficulty,
		WordBank:   t.WordBank,
	}, nil
}

func (q *ArticleQueue) nextCustom(ctx context.Context, userID uuid.UUID) (*models.ArticleResponse, error) {
	unlocked, err := q.gate.IsUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !unlocked {
		return nil, newError(KindNotUnlocked, "Personalized articles are not unlocked yet")
	}

	a, err := q.articles.OldestReady(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		// Concurrent requests for the same user share one generation, which
		// outlives the first caller's cancellation; the pipeline timeout bounds it.
		_, genErr, _ := q.inflight.Do(userID.String(), func() (any, error) {
			return q.pipeline.GenerateOne(context.WithoutCancel(ctx), userID, models.DifficultyIntermediate)
		})
		if genErr != nil {
			if IsKind(genErr, KindInsufficientWords) || IsKind(genErr, KindGenerationFailed) {
				return nil, genErr
			}
			return nil, wrapError(KindGenerationFailed, "Article generation failed", genErr)
		}
		a, err = q.articles.OldestReady(ctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindGenerationFailed, "No article could be prepared")
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load ready article: %w", err)
	}

	return articleResponse(a), nil
}

func articleResponse(a *models.Article) *models.ArticleResponse {
	return &models.ArticleResponse{
		ID:         a.ID.String(),
		Type:       ArticleModeCustom,
		Title:      a.Title,
		Content:    a.Body,
		Difficulty: a.Difficulty,
		WordBank:   a.WordBank,
	}
}

// loadOwned fetches an article and checks it belongs to userID.
func (q *ArticleQueue) loadOwned(ctx context.Context, userID, articleID uuid.UUID) (*models.Article, error) {
	a, err := q.articles.GetByID(ctx, articleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, wrapError(KindNotFound, "Article not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("load article: %w", err)
	}
	if a.UserID != userID {
		return nil, newError(KindUnauthorized, "Article belongs to another user")
	}
	return a, nil
}

// Complete marks an article as read and requests replacements when the
// backlog drops under ReadyFloor. Completing twice is rejected.
func (q *ArticleQueue) Complete(ctx context.Context, userID, articleID uuid.UUID) error {
	unlock, err := q.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}

	var ready int
	err = func() error {
		defer unlock()

		if _, err := q.loadOwned(ctx, userID, articleID); err != nil {
			return err
		}

		changed, err := q.articles.MarkCompleted(ctx, articleID, q.now())
		if err != nil {
			return fmt.Errorf("complete article: %w", err)
		}
		if !changed {
			return newError(KindConflict, "Article is already completed")
		}

		ready, err = q.articles.CountReady(ctx, userID)
		if err != nil {
			return fmt.Errorf("count ready articles: %w", err)
		}
		return nil
	}()
	if err != nil {
		return err
	}

	if ready < ReadyFloor && q.scheduler != nil {
		if err := q.scheduler.ScheduleArticles(ctx, userID, ReadyFloor-ready, "replenish"); err != nil {
			slog.Error("failed to schedule replenishment", "user_id", userID, "err", err)
		}
	}
	return nil
}

// UpdateWordState marks a word of the article as answered and nudges the
// word's durable score through the recognition rule.
func (q *ArticleQueue) UpdateWordState(ctx context.Context, userID, articleID uuid.UUID, headword string, state models.WordState) (*models.Article, error) {
	if state != models.WordStateCorrect && state != models.WordStateWrong {
		return nil, validationError(map[string]string{"state": "State must be correct or wrong"})
	}

	unlock, err := q.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var article *models.Article
	err = q.tx.RunInTx(ctx, func(ctx context.Context) error {
		a, err := q.loadOwned(ctx, userID, articleID)
		if err != nil {
			return err
		}

		idx := a.WordBank.Find(headword)
		if idx < 0 {
			return newError(KindWordNotFoundInArticle, fmt.Sprintf("Word %q is not in this article", headword))
		}

		bank := a.WordBank.Clone()
		bank[idx].State = state
		if err := q.articles.UpdateWordBank(ctx, a.ID, bank); err != nil {
			return fmt.Errorf("save word bank: %w", err)
		}
		a.WordBank = bank
		article = a

		if bank[idx].WordID == nil {
			return nil
		}
		rec, err := q.mastery.Get(ctx, userID, *bank[idx].WordID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("load mastery: %w", err)
		}
		return q.mastery.SetScore(ctx, userID, rec.WordID, recognitionScoreFor(rec, state == models.WordStateCorrect))
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}
