package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/models"
	"wordloop-backend/internal/services"
)

type articleService interface {
	GetNext(ctx context.Context, userID uuid.UUID, mode string) (*models.ArticleResponse, error)
	Complete(ctx context.Context, userID, articleID uuid.UUID) error
	UpdateWordState(ctx context.Context, userID, articleID uuid.UUID, headword string, state models.WordState) (*models.Article, error)
}

type ArticleHandler struct {
	queue articleService
}

func NewArticleHandler(queue articleService) *ArticleHandler {
	return &ArticleHandler{queue: queue}
}

func (h *ArticleHandler) Next(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("type")
	if mode == "" {
		mode = services.ArticleModeCustom
	}

	article, err := h.queue.GetNext(r.Context(), middleware.GetUserID(r.Context()), mode)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, article)
}

func (h *ArticleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid article ID", r))
		return
	}

	if err := h.queue.Complete(r.Context(), middleware.GetUserID(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"status": models.ArticleCompleted,
	})
}

func (h *ArticleHandler) Progress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid article ID", r))
		return
	}

	var req models.WordProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := h.queue.UpdateWordState(r.Context(), middleware.GetUserID(r.Context()), id, req.Word, req.State)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":       article.ID,
		"wordBank": article.WordBank,
	})
}
