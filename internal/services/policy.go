package services

import (
	"math"
	"time"

	"wordloop-backend/internal/models"
)

const (
	MasteryThreshold      = 12
	CorrectIncrement      = 2
	WrongDecrement        = 2
	MasteredQueuePosition = math.MaxInt64

	RecognitionCeiling = 100
)

// ReviewInterval is how many answers later a LEARNING word comes due again.
// Lower scores never get a longer interval than higher ones.
func ReviewInterval(score int) int64 {
	switch {
	case score <= 3:
		return 4
	case score <= 7:
		return 20
	default:
		return 50
	}
}

// applyReviewAnswer updates rec for one active-recall answer given at
// learningIndex. A correct answer on first exposure graduates the word at once.
// MASTERED is terminal: a mastered word's score never falls below the threshold.
// A wrong answer never raises the score.
func applyReviewAnswer(rec *models.MasteryRecord, firstExposure, correct bool, learningIndex int64, now time.Time) {
	floor := 0
	if rec.Status == models.MasteryMastered {
		floor = min(rec.Score, MasteryThreshold)
	}

	rec.LearnCount++
	rec.LastReviewedAt = &now
	rec.LastContactAt = &now

	if correct {
		rec.CorrectCount++
	} else {
		rec.WrongCount++
	}

	switch {
	case firstExposure && correct:
		rec.Score = MasteryThreshold
	case firstExposure:
		rec.Score = 0
	case correct:
		rec.Score += CorrectIncrement
	default:
		rec.Score = max(floor, rec.Score-WrongDecrement)
	}

	if rec.Score >= MasteryThreshold {
		rec.Status = models.MasteryMastered
		rec.QueuePosition = MasteredQueuePosition
		rec.NextReviewAt = nil
		return
	}

	rec.Status = models.MasteryLearning
	rec.QueuePosition = learningIndex + ReviewInterval(rec.Score)
}

// RecognitionScore is the lighter in-article rule: one point up to a ceiling
// of 100, or half a point down rounded down and floored at zero.
func RecognitionScore(score int, correct bool) int {
	if correct {
		return min(RecognitionCeiling, score+1)
	}
	return max(0, int(math.Floor(float64(score)-0.5)))
}

// recognitionScoreFor applies RecognitionScore without letting a mastered
// word drop below the threshold, since this channel never changes status.
func recognitionScoreFor(rec *models.MasteryRecord, correct bool) int {
	score := RecognitionScore(rec.Score, correct)
	if rec.Status == models.MasteryMastered {
		score = max(score, MasteryThreshold)
	}
	return score
}
