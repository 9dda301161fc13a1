package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jeremyjsx/inkwell/internal/assets"
	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/categories"
	"github.com/jeremyjsx/inkwell/internal/middleware"
	"github.com/jeremyjsx/inkwell/internal/posts"
	"github.com/jeremyjsx/inkwell/internal/validate"
)

// retryAfterSeconds is advertised on 503 responses caused by storage
// timeouts or outages.
const retryAfterSeconds = "5"

type APIError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]string) {
	writeJSON(w, status, map[string]any{
		"error": APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// writeServiceError maps a service error onto the HTTP error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	var verr *validate.Error
	switch {
	case errors.Is(err, errBadBody):
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed", verr.Fields)
	case errors.Is(err, assets.ErrInvalidAsset):
		writeError(w, http.StatusBadRequest, "INVALID_ASSET", err.Error(), nil)
	case errors.Is(err, posts.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, "INVALID_REFERENCE", "category does not exist", nil)
	case errors.Is(err, authz.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, http.StatusForbidden, "FORBIDDEN", "not allowed to modify this resource", nil)
	case errors.Is(err, posts.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "post not found", nil)
	case errors.Is(err, categories.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "category not found", nil)
	case errors.Is(err, categories.ErrDuplicateSlug):
		writeError(w, http.StatusConflict, "DUPLICATE_SLUG", err.Error(), nil)
	case errors.Is(err, categories.ErrInUse):
		writeError(w, http.StatusConflict, "CATEGORY_IN_USE", "category is still used by posts", nil)
	case errors.Is(err, posts.ErrStorageFailure), errors.Is(err, categories.ErrStorageFailure):
		logger.Warn(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage temporarily unavailable", nil)
	case errors.Is(err, context.Canceled):
		logger.Debug(op+" canceled by client", "request_id", middleware.GetRequestID(r.Context()))
	default:
		logger.Error(op+" failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
	}
}
