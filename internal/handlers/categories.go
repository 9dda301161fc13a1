package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/categories"
)

type CategoriesHandler struct {
	svc    *categories.Service
	logger *slog.Logger
}

func NewCategoriesHandler(svc *categories.Service, logger *slog.Logger) *CategoriesHandler {
	return &CategoriesHandler{svc: svc, logger: logger}
}

func (h *CategoriesHandler) Routes(r chi.Router) {
	r.Get("/", h.List())
	r.Post("/", h.Create())
	r.Get("/{id}", h.Get())
	r.Put("/{id}", h.Update())
	r.Delete("/{id}", h.Delete())
}

func (h *CategoriesHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := h.svc.List(r.Context())
		if err != nil {
			writeServiceError(w, r, h.logger, "list categories", err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func (h *CategoriesHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "get category", categories.ErrNotFound)
			return
		}
		c, err := h.svc.Get(r.Context(), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "get category", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (h *CategoriesHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in categories.CreateInput
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
			writeServiceError(w, r, h.logger, "create category", errBadBody)
			return
		}
		c, err := h.svc.Create(r.Context(), authz.FromContext(r.Context()), in)
		if err != nil {
			writeServiceError(w, r, h.logger, "create category", err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func (h *CategoriesHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "update category", categories.ErrNotFound)
			return
		}
		var in categories.UpdateInput
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&in); err != nil {
			writeServiceError(w, r, h.logger, "update category", errBadBody)
			return
		}
		c, err := h.svc.Update(r.Context(), authz.FromContext(r.Context()), id, in)
		if err != nil {
			writeServiceError(w, r, h.logger, "update category", err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func (h *CategoriesHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "delete category", categories.ErrNotFound)
			return
		}
		if err := h.svc.Delete(r.Context(), authz.FromContext(r.Context()), id); err != nil {
			writeServiceError(w, r, h.logger, "delete category", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
