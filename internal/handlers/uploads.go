package handlers

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	"github.com/jeremyjsx/inkwell/internal/middleware"
	"github.com/jeremyjsx/inkwell/internal/storage"
)

// sniffLen is how much of an object is read to pick its Content-Type.
const sniffLen = 3072

// Uploads serves stored assets read-only. It is mounted on a wildcard route
// and takes the object key from the wildcard, so any storage backend can sit
// behind the /uploads/ base URL.
func Uploads(blobs storage.Storage, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		if key == "" || !fs.ValidPath(key) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "asset not found", nil)
			return
		}

		body, err := blobs.Download(r.Context(), key)
		switch {
		case err == nil:
		case errors.Is(err, storage.ErrNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "asset not found", nil)
			return
		case r.Context().Err() != nil:
			return
		default:
			logger.Error("asset download failed", "key", key, "error", err, "request_id", middleware.GetRequestID(r.Context()))
			w.Header().Set("Retry-After", retryAfterSeconds)
			writeError(w, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "asset storage unavailable", nil)
			return
		}
		defer body.Close()

		head := make([]byte, sniffLen)
		n, err := io.ReadFull(body, head)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			logger.Error("asset read failed", "key", key, "error", err, "request_id", middleware.GetRequestID(r.Context()))
			writeError(w, http.StatusNotFound, "NOT_FOUND", "asset not found", nil)
			return
		}
		head = head[:n]

		w.Header().Set("Content-Type", mimetype.Detect(head).String())
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.Copy(w, io.MultiReader(bytes.NewReader(head), body)); err != nil {
			logger.Warn("asset write interrupted", "key", key, "error", err)
		}
	}
}
