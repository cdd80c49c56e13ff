package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/models"
	"wordloop-backend/internal/services"
)

type learningService interface {
	GetSession(ctx context.Context, userID uuid.UUID, limit int) ([]models.Word, error)
	SubmitResult(ctx context.Context, userID uuid.UUID, wordID int64, correct bool) (*models.MasteryRecord, error)
	StrangeWordCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type LearningHandler struct {
	scheduler learningService
}

func NewLearningHandler(scheduler learningService) *LearningHandler {
	return &LearningHandler{scheduler: scheduler}
}

func (h *LearningHandler) Session(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", services.DefaultSessionSize)
	limit = max(1, min(limit, services.MaxSessionSize))

	words, err := h.scheduler.GetSession(r.Context(), middleware.GetUserID(r.Context()), limit)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if words == nil {
		words = []models.Word{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"words": words,
		"count": len(words),
	})
}

func (h *LearningHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitResultRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WordID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"wordId": "wordId is required"}, r))
		return
	}

	rec, err := h.scheduler.SubmitResult(r.Context(), middleware.GetUserID(r.Context()), req.WordID, req.IsCorrect)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wordId":       rec.WordID,
		"masteryScore": rec.Score,
		"status":       rec.Status,
		"mastered":     rec.Status == models.MasteryMastered,
		"learnCount":   rec.LearnCount,
		"correctCount": rec.CorrectCount,
		"wrongCount":   rec.WrongCount,
	})
}

func (h *LearningHandler) StrangeCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.scheduler.StrangeWordCount(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}
