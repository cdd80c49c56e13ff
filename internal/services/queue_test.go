package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordloop-backend/internal/models"
)

type queueFixture struct {
	store *memStore
	gen   *echoGenerator
	sched *recordingScheduler
	queue *ArticleQueue
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	f := &queueFixture{store: newMemStore(), gen: &echoGenerator{}, sched: &recordingScheduler{}}
	f.store.seedWords(20)
	gate := NewUnlockGate(f.store, f.sched)
	locker := NewLocalLocker()
	f.queue = NewArticleQueue(f.store, f.store, f.store, gate, newTestPipeline(f.store, f.gen), f.sched, noTx{}, locker)
	return f
}

func (f *queueFixture) unlockedUser(words int) uuid.UUID {
	id := f.store.addUser(models.LearningState{TotalWordsLearned: words})
	f.store.seedMastery(id, words)
	s := f.store.states[id]
	s.ArticlesUnlocked = true
	f.store.states[id] = s
	return id
}

func (f *queueFixture) article(t *testing.T, userID uuid.UUID) *models.Article {
	t.Helper()
	wordID := int64(3)
	a := &models.Article{
		UserID: userID,
		Title:  "Stored",
		Body:   "body",
		WordBank: models.WordBank{
			{WordID: &wordID, Word: "word3", Meaning: "meaning 3", MasteryScore: 3, State: models.WordStateUnused},
			{Word: "extra", Meaning: "not tracked", State: models.WordStateUnused},
		},
	}
	require.NoError(t, f.store.Create(context.Background(), a))
	return a
}

func TestGetNext_Generic(t *testing.T) {
	f := newQueueFixture(t)
	ctx := context.Background()

	_, err := f.queue.GetNext(ctx, uuid.New(), ArticleModeGeneric)
	assert.True(t, IsKind(err, KindNoGenericArticles))

	f.store.tmpl = []models.ArticleTemplate{{ID: 7, Title: "Park", Body: "A [(walk)].", Difficulty: models.DifficultyBeginner}}
	resp, err := f.queue.GetNext(ctx, uuid.New(), ArticleModeGeneric)
	require.NoError(t, err)
	assert.Equal(t, "7", resp.ID)
	assert.Equal(t, ArticleModeGeneric, resp.Type)
	assert.Equal(t, "Park", resp.Title)
}

func TestGetNext_InvalidMode(t *testing.T) {
	f := newQueueFixture(t)
	_, err := f.queue.GetNext(context.Background(), uuid.New(), "daily")
	assert.True(t, IsKind(err, KindInvalidArgument))
}

func TestGetNext_ModeIgnoresCase(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	f.article(t, userID)

	resp, err := f.queue.GetNext(context.Background(), userID, "Custom")
	require.NoError(t, err)
	assert.Equal(t, ArticleModeCustom, resp.Type)

	f.store.tmpl = []models.ArticleTemplate{{ID: 1, Title: "Park"}}
	resp, err = f.queue.GetNext(context.Background(), userID, "GENERIC")
	require.NoError(t, err)
	assert.Equal(t, ArticleModeGeneric, resp.Type)
}

func TestGetNext_GenerationOutlivesCanceledCaller(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.queue.pipeline.generator = &ctxCheckingGenerator{inner: f.gen}
	_, err := f.queue.GetNext(ctx, userID, ArticleModeCustom)
	require.NoError(t, err)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestGetNext_CustomRequiresUnlock(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.store.addUser(models.LearningState{TotalWordsLearned: 3})

	_, err := f.queue.GetNext(context.Background(), userID, ArticleModeCustom)
	assert.True(t, IsKind(err, KindNotUnlocked))
}

func TestGetNext_CustomServesOldestReady(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	first := f.article(t, userID)
	f.article(t, userID)

	resp, err := f.queue.GetNext(context.Background(), userID, ArticleModeCustom)
	require.NoError(t, err)
	assert.Equal(t, first.ID.String(), resp.ID)
	assert.Equal(t, ArticleModeCustom, resp.Type)
	assert.Zero(t, f.gen.Calls())
}

func TestGetNext_CustomGeneratesWhenEmpty(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)

	resp, err := f.queue.GetNext(context.Background(), userID, ArticleModeCustom)
	require.NoError(t, err)
	assert.Len(t, resp.WordBank, ArticleWordCount)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestGetNext_CustomInsufficientWords(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(ArticleWordCount - 1)

	_, err := f.queue.GetNext(context.Background(), userID, ArticleModeCustom)
	assert.True(t, IsKind(err, KindInsufficientWords))
}

func TestComplete_ReplenishesBelowFloor(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)
	f.article(t, userID)
	ctx := context.Background()

	require.NoError(t, f.queue.Complete(ctx, userID, a.ID))
	assert.Equal(t, []scheduleCall{{userID, ReadyFloor - 1, "replenish"}}, f.sched.Calls())

	stored, err := f.store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArticleCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	err = f.queue.Complete(ctx, userID, a.ID)
	assert.True(t, IsKind(err, KindConflict))
	assert.Len(t, f.sched.Calls(), 1)
}

func TestComplete_LastReadyRequestsFullFloor(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)

	require.NoError(t, f.queue.Complete(context.Background(), userID, a.ID))
	assert.Equal(t, []scheduleCall{{userID, ReadyFloor, "replenish"}}, f.sched.Calls())
}

func TestComplete_NoReplenishAtFloor(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)
	f.article(t, userID)
	f.article(t, userID)

	require.NoError(t, f.queue.Complete(context.Background(), userID, a.ID))
	assert.Empty(t, f.sched.Calls())
}

func TestComplete_OwnershipAndMissing(t *testing.T) {
	f := newQueueFixture(t)
	owner := f.unlockedUser(UnlockThreshold)
	a := f.article(t, owner)
	ctx := context.Background()

	err := f.queue.Complete(ctx, uuid.New(), a.ID)
	assert.True(t, IsKind(err, KindUnauthorized))

	err = f.queue.Complete(ctx, owner, uuid.New())
	assert.True(t, IsKind(err, KindNotFound))
}

func TestUpdateWordState(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)
	ctx := context.Background()

	updated, err := f.queue.UpdateWordState(ctx, userID, a.ID, "WORD3", models.WordStateCorrect)
	require.NoError(t, err)
	assert.Equal(t, models.WordStateCorrect, updated.WordBank[0].State)
	rec, _ := f.store.record(userID, 3)
	assert.Equal(t, 4, rec.Score)

	_, err = f.queue.UpdateWordState(ctx, userID, a.ID, "word3", models.WordStateWrong)
	require.NoError(t, err)
	rec, _ = f.store.record(userID, 3)
	assert.Equal(t, 3, rec.Score)

	updated, err = f.queue.UpdateWordState(ctx, userID, a.ID, "extra", models.WordStateWrong)
	require.NoError(t, err)
	assert.Equal(t, models.WordStateWrong, updated.WordBank[1].State)

	stored, _ := f.store.GetByID(ctx, a.ID)
	assert.Equal(t, models.WordStateWrong, stored.WordBank[0].State)
}

func TestUpdateWordState_Errors(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)
	ctx := context.Background()

	_, err := f.queue.UpdateWordState(ctx, userID, a.ID, "absent", models.WordStateCorrect)
	assert.True(t, IsKind(err, KindWordNotFoundInArticle))
	stored, err := f.store.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.WordBank, stored.WordBank, "bank untouched")
	rec, _ := f.store.record(userID, 3)
	assert.Equal(t, 3, rec.Score)

	_, err = f.queue.UpdateWordState(ctx, userID, a.ID, "word3", models.WordStateUnused)
	assert.True(t, IsKind(err, KindInvalidArgument))

	_, err = f.queue.UpdateWordState(ctx, uuid.New(), a.ID, "word3", models.WordStateCorrect)
	assert.True(t, IsKind(err, KindUnauthorized))
}

func TestUpdateWordState_MasteredWordStaysAtThreshold(t *testing.T) {
	f := newQueueFixture(t)
	userID := f.unlockedUser(UnlockThreshold)
	a := f.article(t, userID)
	ctx := context.Background()
	f.store.mastery[masteryKey{userID, 3}] = models.MasteryRecord{
		UserID:        userID,
		WordID:        3,
		Score:         MasteryThreshold,
		Status:        models.MasteryMastered,
		QueuePosition: MasteredQueuePosition,
	}

	_, err := f.queue.UpdateWordState(ctx, userID, a.ID, "word3", models.WordStateWrong)
	require.NoError(t, err)
	rec, _ := f.store.record(userID, 3)
	assert.Equal(t, MasteryThreshold, rec.Score)
	assert.Equal(t, models.MasteryMastered, rec.Status)

	_, err = f.queue.UpdateWordState(ctx, userID, a.ID, "word3", models.WordStateCorrect)
	require.NoError(t, err)
	rec, _ = f.store.record(userID, 3)
	assert.Equal(t, MasteryThreshold+1, rec.Score)
}
