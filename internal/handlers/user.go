package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/models"
)

type statsService interface {
	CheckIn(ctx context.Context, userID uuid.UUID) (*models.CheckInResult, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error)
	Leaderboard(ctx context.Context, userID uuid.UUID) (*models.Leaderboard, error)
}

type UserHandler struct {
	stats statsService
}

func NewUserHandler(stats statsService) *UserHandler {
	return &UserHandler{stats: stats}
}

func (h *UserHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	res, err := h.stats.CheckIn(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	res, err := h.stats.Stats(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	res, err := h.stats.Leaderboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
