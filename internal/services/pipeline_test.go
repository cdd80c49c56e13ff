package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordloop-backend/internal/models"
)

func newTestPipeline(store *memStore, gen ContentGenerator) *ArticlePipeline {
	p := NewArticlePipeline(store, store, gen, NewLocalLocker(), time.Second)
	p.shuffle = noShuffle
	return p
}

func TestGenerateOne_UsesWeakestWords(t *testing.T) {
	store := newMemStore()
	store.seedWords(12)
	userID := uuid.New()
	store.seedMastery(userID, 12)
	gen := &echoGenerator{}
	p := newTestPipeline(store, gen)

	a, err := p.GenerateOne(context.Background(), userID, "")
	require.NoError(t, err)

	assert.Equal(t, models.DifficultyIntermediate, a.Difficulty)
	assert.Equal(t, models.ArticleReady, a.Status)
	require.Len(t, a.WordBank, ArticleWordCount)
	for i, e := range a.WordBank {
		require.NotNil(t, e.WordID)
		assert.Equal(t, int64(i+1), *e.WordID)
		assert.Equal(t, i+1, e.MasteryScore)
		assert.Equal(t, models.WordStateUnused, e.State)
	}

	n, _ := store.CountReady(context.Background(), userID)
	assert.Equal(t, 1, n)
}

func TestGenerateOne_InsufficientWords(t *testing.T) {
	store := newMemStore()
	store.seedWords(7)
	userID := uuid.New()
	store.seedMastery(userID, 7)
	gen := &echoGenerator{}
	p := newTestPipeline(store, gen)

	_, err := p.GenerateOne(context.Background(), userID, models.DifficultyBeginner)
	assert.True(t, IsKind(err, KindInsufficientWords))
	assert.Zero(t, gen.Calls(), "no external call below the word floor")
}

func TestGenerateOne_SkipsDuplicateHeadwords(t *testing.T) {
	store := newMemStore()
	store.seedWords(12)
	w := store.words[2]
	w.Headword = "Word1"
	store.words[2] = w
	userID := uuid.New()
	store.seedMastery(userID, 12)

	a, err := newTestPipeline(store, &echoGenerator{}).GenerateOne(context.Background(), userID, "")
	require.NoError(t, err)
	require.Len(t, a.WordBank, ArticleWordCount)
	var ids []int64
	for _, e := range a.WordBank {
		ids = append(ids, *e.WordID)
	}
	assert.Equal(t, []int64{1, 3, 4, 5, 6, 7, 8, 9}, ids)
}

func TestGenerateOne_DuplicatesCountOnce(t *testing.T) {
	store := newMemStore()
	store.seedWords(8)
	w := store.words[2]
	w.Headword = "word1"
	store.words[2] = w
	userID := uuid.New()
	store.seedMastery(userID, 8)
	gen := &echoGenerator{}

	_, err := newTestPipeline(store, gen).GenerateOne(context.Background(), userID, "")
	assert.True(t, IsKind(err, KindInsufficientWords))
	assert.Zero(t, gen.Calls())
}

func TestGenerateOne_TimeoutIsGenerationFailed(t *testing.T) {
	store := newMemStore()
	store.seedWords(8)
	userID := uuid.New()
	store.seedMastery(userID, 8)
	p := NewArticlePipeline(store, store, blockingGenerator{}, NewLocalLocker(), 20*time.Millisecond)

	_, err := p.GenerateOne(context.Background(), userID, "")
	assert.True(t, IsKind(err, KindGenerationFailed))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	n, _ := store.CountReady(context.Background(), userID)
	assert.Zero(t, n)
}

func TestGenerateOne_GenerationFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  *echoGenerator
	}{
		{"generator error", &echoGenerator{err: assert.AnError}},
		{"missing marker", &echoGenerator{drop: true}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.seedWords(8)
			userID := uuid.New()
			store.seedMastery(userID, 8)

			_, err := newTestPipeline(store, tc.gen).GenerateOne(context.Background(), userID, "")
			assert.True(t, IsKind(err, KindGenerationFailed))

			n, _ := store.CountReady(context.Background(), userID)
			assert.Zero(t, n, "nothing stored on failure")
		})
	}
}

func TestGenerateBatch_CollectsFailures(t *testing.T) {
	store := newMemStore()
	store.seedWords(8)
	userID := uuid.New()
	store.seedMastery(userID, 8)
	p := newTestPipeline(store, &echoGenerator{})

	res := p.GenerateBatch(context.Background(), userID, 3)
	assert.Len(t, res.Articles, 3)
	assert.Empty(t, res.Errors)

	p = newTestPipeline(store, &echoGenerator{err: assert.AnError})
	res = p.GenerateBatch(context.Background(), userID, 2)
	assert.Empty(t, res.Articles)
	assert.Len(t, res.Errors, 2)
}

func TestValidateGenerated(t *testing.T) {
	words := []PromptWord{{Word: "improve"}, {Word: "Habit"}}

	ok := &GeneratedArticle{Title: "T", Content: "I [(Improve)] my [(habit)] daily."}
	assert.NoError(t, validateGenerated(ok, words))

	twice := &GeneratedArticle{Title: "T", Content: "[(improve)] [(improve)] [(habit)]"}
	assert.ErrorContains(t, validateGenerated(twice, words), "marked 2 times")

	missing := &GeneratedArticle{Title: "T", Content: "[(improve)] habit"}
	assert.ErrorContains(t, validateGenerated(missing, words), "not marked")

	assert.Error(t, validateGenerated(&GeneratedArticle{Content: "[(improve)] [(habit)]"}, words))
	assert.Error(t, validateGenerated(nil, words))
}

func TestParseArticleJSON(t *testing.T) {
	art, err := parseArticleJSON("```json\n{\"title\": \"Morning\", \"content\": \"body\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Morning", art.Title)
	assert.Equal(t, "body", art.Content)

	_, err = parseArticleJSON("not json")
	assert.Error(t, err)
}

func TestBuildArticlePrompt(t *testing.T) {
	prompt := buildArticlePrompt(GenerationRequest{
		Words:      []PromptWord{{Word: "improve", Meaning: "提高"}},
		Difficulty: models.DifficultyAdvanced,
	})
	assert.Contains(t, prompt, "1. improve - 提高")
	assert.Contains(t, prompt, "advanced")
	assert.Contains(t, prompt, "[(word)]")
}

func TestThrottle(t *testing.T) {
	th := newThrottle(1, 0)
	require.NoError(t, th.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, th.acquire(ctx), context.DeadlineExceeded)

	th.release()
	assert.NoError(t, th.acquire(context.Background()))
}

func TestGenerateOne_RejectsUnknownDifficulty(t *testing.T) {
	store := newMemStore()
	gen := &echoGenerator{}

	_, err := newTestPipeline(store, gen).GenerateOne(context.Background(), uuid.New(), "expert")
	assert.True(t, IsKind(err, KindInvalidArgument))
	assert.Zero(t, gen.Calls())
}
