package services

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wordloop-backend/internal/models"
	"wordloop-backend/internal/repository"
)

type masteryKey struct {
	user uuid.UUID
	word int64
}

// memStore backs every store interface of the package with maps.
type memStore struct {
	mu       sync.Mutex
	words    map[int64]models.Word
	mastery  map[masteryKey]models.MasteryRecord
	states   map[uuid.UUID]models.LearningState
	articles map[uuid.UUID]*models.Article
	order    []uuid.UUID
	tmpl     []models.ArticleTemplate
}

func newMemStore() *memStore {
	return &memStore{
		words:    make(map[int64]models.Word),
		mastery:  make(map[masteryKey]models.MasteryRecord),
		states:   make(map[uuid.UUID]models.LearningState),
		articles: make(map[uuid.UUID]*models.Article),
	}
}

// seedWords adds n catalog words; lower ids are more frequent.
func (m *memStore) seedWords(n int) {
	for i := 1; i <= n; i++ {
		m.words[int64(i)] = models.Word{
			ID:        int64(i),
			Headword:  fmt.Sprintf("word%d", i),
			Meaning:   fmt.Sprintf("meaning %d", i),
			Frequency: 1000 - i,
		}
	}
}

func (m *memStore) addUser(state models.LearningState) uuid.UUID {
	if state.UserID == uuid.Nil {
		state.UserID = uuid.New()
	}
	m.states[state.UserID] = state
	return state.UserID
}

func (m *memStore) record(userID uuid.UUID, wordID int64) (models.MasteryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.mastery[masteryKey{userID, wordID}]
	return r, ok
}

func (m *memStore) state(userID uuid.UUID) models.LearningState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID]
}

// wordStore

func (m *memStore) GetByIDs(_ context.Context, ids []int64) ([]models.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Word
	for _, id := range ids {
		if w, ok := m.words[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *memStore) FindUnseenForUser(_ context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.Word, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Word
	for id, w := range m.words {
		if _, seen := m.mastery[masteryKey{userID, id}]; seen || slices.Contains(excludeIDs, id) {
			continue
		}
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// masteryStore

func (m *memStore) Get(_ context.Context, userID uuid.UUID, wordID int64) (*models.MasteryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.mastery[masteryKey{userID, wordID}]
	if !ok {
		return nil, fmt.Errorf("mastery %d: %w", wordID, repository.ErrNotFound)
	}
	return &r, nil
}

func (m *memStore) Upsert(_ context.Context, r *models.MasteryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mastery[masteryKey{r.UserID, r.WordID}] = *r
	return nil
}

func (m *memStore) ListLearning(_ context.Context, userID uuid.UUID, excludeIDs []int64, limit int) ([]models.MasteryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.MasteryRecord
	for k, r := range m.mastery {
		if k.user != userID || r.Status != models.MasteryLearning || slices.Contains(excludeIDs, k.word) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].QueuePosition != out[j].QueuePosition {
			return out[i].QueuePosition < out[j].QueuePosition
		}
		return out[i].WordID < out[j].WordID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) TouchContact(_ context.Context, userID uuid.UUID, wordIDs []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range wordIDs {
		k := masteryKey{userID, id}
		if r, ok := m.mastery[k]; ok {
			r.LastContactAt = &at
			m.mastery[k] = r
		}
	}
	return nil
}

func (m *memStore) ListWeakest(_ context.Context, userID uuid.UUID, n int) ([]repository.WeakWord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.WeakWord
	for k, r := range m.mastery {
		if k.user != userID {
			continue
		}
		w := m.words[k.word]
		out = append(out, repository.WeakWord{
			WordID:         k.word,
			Headword:       w.Headword,
			Meaning:        w.Meaning,
			Score:          r.Score,
			LastReviewedAt: r.LastReviewedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].WordID < out[j].WordID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memStore) CountByUser(_ context.Context, userID uuid.UUID, scoreLessThan *int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, r := range m.mastery {
		if k.user == userID && (scoreLessThan == nil || r.Score < *scoreLessThan) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SetScore(_ context.Context, userID uuid.UUID, wordID int64, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := masteryKey{userID, wordID}
	r, ok := m.mastery[k]
	if !ok {
		return repository.ErrNotFound
	}
	r.Score = score
	m.mastery[k] = r
	return nil
}

// learningStateStore

func (m *memStore) GetLearningState(_ context.Context, userID uuid.UUID) (*models.LearningState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	s.RecentWordIDs = slices.Clone(s.RecentWordIDs)
	return &s, nil
}

func (m *memStore) SaveLearningState(_ context.Context, s *models.LearningState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.states[s.UserID]
	// the unlock flag is owned by TryUnlockArticles
	s2 := *s
	s2.ArticlesUnlocked = cur.ArticlesUnlocked
	m.states[s.UserID] = s2
	return nil
}

func (m *memStore) TryUnlockArticles(_ context.Context, userID uuid.UUID, threshold int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[userID]
	if !ok || s.ArticlesUnlocked || s.TotalWordsLearned < threshold {
		return false, nil
	}
	s.ArticlesUnlocked = true
	m.states[userID] = s
	return true, nil
}

// articleStore

func (m *memStore) Create(_ context.Context, a *models.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.Status = models.ArticleReady
	a.CreatedAt = time.Now()
	cp := *a
	cp.WordBank = a.WordBank.Clone()
	m.articles[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return nil, fmt.Errorf("article %s: %w", id, repository.ErrNotFound)
	}
	cp := *a
	cp.WordBank = a.WordBank.Clone()
	return &cp, nil
}

func (m *memStore) OldestReady(_ context.Context, userID uuid.UUID) (*models.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		a := m.articles[id]
		if a.UserID == userID && a.Status == models.ArticleReady {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CountReady(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.articles {
		if a.UserID == userID && a.Status == models.ArticleReady {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok || a.Status != models.ArticleReady {
		return false, nil
	}
	a.Status = models.ArticleCompleted
	a.CompletedAt = &at
	return true, nil
}

func (m *memStore) UpdateWordBank(_ context.Context, id uuid.UUID, bank models.WordBank) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.articles[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.WordBank = bank.Clone()
	return nil
}

// templateStore

func (m *memStore) Random(context.Context) (*models.ArticleTemplate, error) {
	if len(m.tmpl) == 0 {
		return nil, repository.ErrNotFound
	}
	t := m.tmpl[0]
	return &t, nil
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

type scheduleCall struct {
	userID uuid.UUID
	count  int
	reason string
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls []scheduleCall
	err   error
}

func (s *recordingScheduler) ScheduleArticles(_ context.Context, userID uuid.UUID, count int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduleCall{userID, count, reason})
	return s.err
}

func (s *recordingScheduler) Calls() []scheduleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// echoGenerator marks every requested word once.
type echoGenerator struct {
	mu    sync.Mutex
	calls int
	err   error
	drop  bool
}

func (g *echoGenerator) Generate(_ context.Context, req GenerationRequest) (*GeneratedArticle, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	words := req.Words
	if g.drop {
		words = words[1:]
	}
	content := "Today I"
	for _, w := range words {
		content += " [(" + w.Word + ")]"
	}
	return &GeneratedArticle{Title: "A day", Content: content + "."}, nil
}

func (g *echoGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// seedMastery gives userID a LEARNING record for word ids 1..n with score = id.
func (m *memStore) seedMastery(userID uuid.UUID, n int) {
	for i := 1; i <= n; i++ {
		m.mastery[masteryKey{userID, int64(i)}] = models.MasteryRecord{
			UserID: userID,
			WordID: int64(i),
			Score:  i,
			Status: models.MasteryLearning,
		}
	}
}

func noShuffle(int, func(i, j int)) {}

// ctxCheckingGenerator fails when handed an already canceled context.
type ctxCheckingGenerator struct {
	inner ContentGenerator
}

func (g *ctxCheckingGenerator) Generate(ctx context.Context, req GenerationRequest) (*GeneratedArticle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.inner.Generate(ctx, req)
}

// blockingGenerator waits until its context ends.
type blockingGenerator struct{}

func (blockingGenerator) Generate(ctx context.Context, _ GenerationRequest) (*GeneratedArticle, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
