package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"wordloop-backend/internal/middleware"
	"wordloop-backend/internal/models"
	"wordloop-backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: middleware.GetRequestID(r.Context()),
		},
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

// queryInt reads an integer query parameter; absent or malformed values yield def.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func statusForKind(kind services.ErrorKind) (int, string) {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case services.KindUnauthorized:
		return http.StatusForbidden, "FORBIDDEN"
	case services.KindInsufficientWords:
		return http.StatusUnprocessableEntity, "INSUFFICIENT_WORDS"
	case services.KindNotUnlocked:
		return http.StatusForbidden, "NOT_UNLOCKED"
	case services.KindGenerationFailed:
		return http.StatusBadGateway, "GENERATION_FAILED"
	case services.KindNoGenericArticles:
		return http.StatusNotFound, "NO_GENERIC_ARTICLES"
	case services.KindWordNotFoundInArticle:
		return http.StatusNotFound, "WORD_NOT_FOUND_IN_ARTICLE"
	case services.KindInvalidArgument:
		return http.StatusBadRequest, "VALIDATION_ERROR"
	case services.KindConflict:
		return http.StatusConflict, "CONFLICT"
	case services.KindUnauthenticated:
		return http.StatusUnauthorized, "UNAUTHORIZED"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		slog.Error("unhandled service error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	status, code := statusForKind(svcErr.Kind)
	if status == http.StatusInternalServerError || status == http.StatusBadGateway {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, status, errorRespWithFields(code, svcErr.Message, svcErr.Fields, r))
}
