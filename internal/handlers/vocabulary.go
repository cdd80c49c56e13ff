package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/models"
	"wordloop-backend/internal/services"
)

type vocabularyService interface {
	Page(ctx context.Context, userID uuid.UUID, page, size int) (*models.VocabularyPage, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.VocabularyStats, error)
}

type VocabularyHandler struct {
	vocabulary vocabularyService
}

func NewVocabularyHandler(vocabulary vocabularyService) *VocabularyHandler {
	return &VocabularyHandler{vocabulary: vocabulary}
}

func (h *VocabularyHandler) MyWords(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", services.DefaultVocabularyPageSize)

	res, err := h.vocabulary.Page(r.Context(), middleware.GetUserID(r.Context()), page, size)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *VocabularyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.vocabulary.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
