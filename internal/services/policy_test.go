package services

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wordloop-backend/internal/models"
)

func TestRecentWindow(t *testing.T) {
	w := NewRecentWindow([]int64{1, 2, 3})
	assert.True(t, w.Contains(2))
	assert.False(t, w.Contains(9))

	w.Insert(2)
	assert.Equal(t, []int64{1, 3, 2}, w.IDs(), "re-insert moves to the tail")

	for id := int64(4); id <= 7; id++ {
		w.Insert(id)
	}
	assert.Equal(t, RecentWindowSize, w.Len())
	assert.Equal(t, []int64{2, 4, 5, 6, 7}, w.IDs())

	ids := w.IDs()
	ids[0] = 100
	assert.Equal(t, int64(2), w.IDs()[0], "IDs returns a copy")
}

func TestReviewIntervalIsMonotone(t *testing.T) {
	prev := int64(0)
	for score := 0; score < MasteryThreshold; score++ {
		iv := ReviewInterval(score)
		assert.GreaterOrEqual(t, iv, prev, "score %d", score)
		prev = iv
	}
	assert.Equal(t, int64(4), ReviewInterval(0))
	assert.Equal(t, int64(20), ReviewInterval(5))
	assert.Equal(t, int64(50), ReviewInterval(10))
}

func TestApplyReviewAnswer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		rec       models.MasteryRecord
		first     bool
		correct   bool
		wantScore int
		wantState models.MasteryStatus
		wantQueue int64
	}{
		{
			name:      "first exposure correct graduates",
			rec:       models.MasteryRecord{Status: models.MasteryLearning},
			first:     true,
			correct:   true,
			wantScore: MasteryThreshold,
			wantState: models.MasteryMastered,
			wantQueue: math.MaxInt64,
		},
		{
			name:      "first exposure wrong starts at zero",
			rec:       models.MasteryRecord{Status: models.MasteryLearning},
			first:     true,
			wantScore: 0,
			wantState: models.MasteryLearning,
			wantQueue: 10 + 4,
		},
		{
			name:      "correct review adds two",
			rec:       models.MasteryRecord{Score: 6, Status: models.MasteryLearning},
			correct:   true,
			wantScore: 8,
			wantState: models.MasteryLearning,
			wantQueue: 10 + 50,
		},
		{
			name:      "wrong review floors at zero",
			rec:       models.MasteryRecord{Score: 1, Status: models.MasteryLearning},
			wantScore: 0,
			wantState: models.MasteryLearning,
			wantQueue: 10 + 4,
		},
		{
			name:      "reaching the threshold masters",
			rec:       models.MasteryRecord{Score: 10, Status: models.MasteryLearning},
			correct:   true,
			wantScore: 12,
			wantState: models.MasteryMastered,
			wantQueue: math.MaxInt64,
		},
		{
			name:      "mastered word stays mastered on a miss",
			rec:       models.MasteryRecord{Score: 12, Status: models.MasteryMastered, QueuePosition: math.MaxInt64},
			wantScore: 12,
			wantState: models.MasteryMastered,
			wantQueue: math.MaxInt64,
		},
		{
			name:      "mastered word above the threshold falls back to it",
			rec:       models.MasteryRecord{Score: 14, Status: models.MasteryMastered, QueuePosition: math.MaxInt64},
			wantScore: 12,
			wantState: models.MasteryMastered,
			wantQueue: math.MaxInt64,
		},
		{
			name:      "miss never raises a mastered record below the threshold",
			rec:       models.MasteryRecord{Score: 11, Status: models.MasteryMastered, QueuePosition: math.MaxInt64},
			wantScore: 11,
			wantState: models.MasteryLearning,
			wantQueue: 10 + 50,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := tc.rec
			applyReviewAnswer(&rec, tc.first, tc.correct, 10, now)
			assert.Equal(t, tc.wantScore, rec.Score)
			assert.Equal(t, tc.wantState, rec.Status)
			assert.Equal(t, tc.wantQueue, rec.QueuePosition)
			assert.Equal(t, 1, rec.LearnCount)
			assert.Equal(t, now, *rec.LastReviewedAt)
			if tc.correct {
				assert.Equal(t, 1, rec.CorrectCount)
			} else {
				assert.Equal(t, 1, rec.WrongCount)
			}
		})
	}
}

func TestRecognitionScore(t *testing.T) {
	assert.Equal(t, 4, RecognitionScore(3, true))
	assert.Equal(t, 100, RecognitionScore(100, true))
	assert.Equal(t, 4, RecognitionScore(5, false))
	assert.Equal(t, 0, RecognitionScore(1, false))
	assert.Equal(t, 0, RecognitionScore(0, false))

	mastered := &models.MasteryRecord{Score: MasteryThreshold, Status: models.MasteryMastered}
	assert.Equal(t, MasteryThreshold, recognitionScoreFor(mastered, false))
	assert.Equal(t, MasteryThreshold+1, recognitionScoreFor(mastered, true))
	learning := &models.MasteryRecord{Score: 5, Status: models.MasteryLearning}
	assert.Equal(t, 4, recognitionScoreFor(learning, false))
}

func TestKindOf(t *testing.T) {
	err := wrapError(KindNotFound, "Word not found", assert.AnError)
	wrapped := &Error{Kind: KindConflict, Message: "outer"}

	k, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindNotFound, k)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "Word not found: "+assert.AnError.Error(), err.Error())

	assert.True(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(assert.AnError, KindConflict))
	assert.Equal(t, "insufficient_words", KindInsufficientWords.String())
}
