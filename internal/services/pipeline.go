package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

const (
	ArticleWordCount         = 8
	DefaultGenerationTimeout = 60 * time.Second
)

// ArticlePipeline turns a user's weakest words into a new READY article.
type ArticlePipeline struct {
	mastery     masteryStore
	articles    articleStore
	generator   ContentGenerator
	locker      UserLocker
	timeout     time.Duration
	concurrency int
	shuffle     func(n int, swap func(i, j int))
}

func NewArticlePipeline(mastery masteryStore, articles articleStore, generator ContentGenerator, locker UserLocker, timeout time.Duration) *ArticlePipeline {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &ArticlePipeline{
		mastery:     mastery,
		articles:    articles,
		generator:   generator,
		locker:      locker,
		timeout:     timeout,
		concurrency: 2,
		shuffle:     rand.Shuffle,
	}
}

// GenerateOne writes one article from the user's eight weakest words.
// The external call runs outside the user lock; only the insert holds it.
func (p *ArticlePipeline) GenerateOne(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (*models.Article, error) {
	difficulty, ok := models.ParseDifficulty(string(difficulty))
	if !ok {
		return nil, validationError(map[string]string{"difficulty": "Difficulty must be beginner, intermediate or advanced"})
	}

	weak, err := p.mastery.ListWeakest(ctx, userID, 2*ArticleWordCount)
	if err != nil {
		return nil, fmt.Errorf("select weakest words: %w", err)
	}
	weak = distinctHeadwords(weak, ArticleWordCount)
	if len(weak) < ArticleWordCount {
		return nil, newError(KindInsufficientWords,
			fmt.Sprintf("At least %d studied words are needed, have %d", ArticleWordCount, len(weak)))
	}

	words := make([]PromptWord, len(weak))
	for i, w := range weak {
		words[i] = PromptWord{Word: w.Headword, Meaning: w.Meaning}
	}

	genCtx, cancel := context.WithTimeout(ctx, p.timeout)
	generated, err := p.generator.Generate(genCtx, GenerationRequest{Words: words, Difficulty: difficulty})
	cancel()
	if err != nil {
		return nil, wrapError(KindGenerationFailed, "Article generation failed", err)
	}
	if err := validateGenerated(generated, words); err != nil {
		return nil, wrapError(KindGenerationFailed, "Generated article was malformed", err)
	}

	bank := make(models.WordBank, len(weak))
	for i, w := range weak {
		id := w.WordID
		bank[i] = models.WordBankEntry{
			WordID:       &id,
			Word:         w.Headword,
			Meaning:      w.Meaning,
			MasteryScore: w.Score,
			State:        models.WordStateUnused,
		}
	}
	p.shuffle(len(bank), func(i, j int) { bank[i], bank[j] = bank[j], bank[i] })

	article := &models.Article{
		UserID:     userID,
		Title:      generated.Title,
		Body:       generated.Content,
		Difficulty: difficulty,
		WordBank:   bank,
	}

	unlock, err := p.locker.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := p.articles.Create(ctx, article); err != nil {
		return nil, fmt.Errorf("save article: %w", err)
	}

	slog.Info("article generated", "user_id", userID, "article_id", article.ID)
	return article, nil
}

// distinctHeadwords keeps the first record of each headword, compared
// case-insensitively, up to n records. A headword is marked exactly once
// in the body.
func distinctHeadwords(weak []repository.WeakWord, n int) []repository.WeakWord {
	seen := make(map[string]bool, len(weak))
	out := make([]repository.WeakWord, 0, n)
	for _, w := range weak {
		key := strings.ToLower(w.Headword)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, w)
		if len(out) == n {
			break
		}
	}
	return out
}

type BatchResult struct {
	Articles []*models.Article
	Errors   []error
}

// GenerateBatch attempts count articles. Individual failures are collected,
// never returned as an overall error.
func (p *ArticlePipeline) GenerateBatch(ctx context.Context, userID uuid.UUID, count int) BatchResult {
	var (
		mu  sync.Mutex
		res BatchResult
		g   errgroup.Group
	)
	g.SetLimit(max(1, p.concurrency))

	for i := 0; i < count; i++ {
		g.Go(func() error {
			article, err := p.GenerateOne(ctx, userID, models.DifficultyIntermediate)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("batch article failed", "user_id", userID, "err", err)
				res.Errors = append(res.Errors, err)
				return nil
			}
			res.Articles = append(res.Articles, article)
			return nil
		})
	}
	g.Wait()

	return res
}

// InlineScheduler generates requested articles in a background goroutine of
// the current process. Used when no job queue is configured.
type InlineScheduler struct {
	pipeline *ArticlePipeline
}

func NewInlineScheduler(p *ArticlePipeline) *InlineScheduler {
	return &InlineScheduler{pipeline: p}
}

func (s *InlineScheduler) ScheduleArticles(ctx context.Context, userID uuid.UUID, count int, reason string) error {
	go func() {
		res := s.pipeline.GenerateBatch(context.WithoutCancel(ctx), userID, count)
		slog.Info("inline article batch finished", "user_id", userID, "reason", reason,
			"created", len(res.Articles), "failed", len(res.Errors))
	}()
	return nil
}
