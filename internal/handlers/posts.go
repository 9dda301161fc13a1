package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/posts"
	"github.com/jeremyjsx/inkwell/internal/validate"
)

type PostsHandler struct {
	svc    *posts.Service
	logger *slog.Logger
}

func NewPostsHandler(svc *posts.Service, logger *slog.Logger) *PostsHandler {
	return &PostsHandler{
		svc:    svc,
		logger: logger,
	}
}

func (h *PostsHandler) Routes(r chi.Router) {
	r.Get("/", h.List())
	r.Post("/", h.Create())
	r.Get("/{id}", h.Get())
	r.Put("/{id}", h.Update())
	r.Delete("/{id}", h.Delete())
	r.Post("/{id}/like", h.ToggleLike())
}

func (h *PostsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter, err := parseFilter(r)
		if err != nil {
			writeServiceError(w, r, h.logger, "list posts", err)
			return
		}
		res, err := h.svc.List(r.Context(), authz.FromContext(r.Context()), filter)
		if err != nil {
			writeServiceError(w, r, h.logger, "list posts", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func parseFilter(r *http.Request) (posts.Filter, error) {
	q := r.URL.Query()
	var f posts.Filter
	errs := map[string]string{}

	parseInt := func(name string, dst *int) {
		if raw := q.Get(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				errs[name] = "must be a number"
				return
			}
			*dst = n
		}
	}
	parseUUID := func(name string) *uuid.UUID {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		id, ok := parseID(raw)
		if !ok {
			errs[name] = "must be a valid id"
			return nil
		}
		return &id
	}

	parseInt("page", &f.Page)
	parseInt("limit", &f.Limit)
	f.Category = parseUUID("category")
	f.Author = parseUUID("author")
	f.Search = q.Get("search")
	if raw := q.Get("status"); raw != "" {
		status, err := posts.ParseStatus(raw)
		if err != nil {
			errs["status"] = "must be one of: draft published"
		} else {
			f.Status = &status
		}
	}
	if len(errs) > 0 {
		return posts.Filter{}, &validate.Error{Fields: errs}
	}
	return f, nil
}

func (h *PostsHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "get post", posts.ErrNotFound)
			return
		}
		post, err := h.svc.Get(r.Context(), authz.FromContext(r.Context()), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "get post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Create() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := authz.FromContext(r.Context())
		if caller == nil {
			writeServiceError(w, r, h.logger, "create post", authz.ErrUnauthorized)
			return
		}

		var in posts.CreateInput
		upload, err := decodeBody(w, r, &in, func(name, value string) {
			switch name {
			case "title":
				in.Title = value
			case "content":
				in.Content = value
			case "excerpt":
				in.Excerpt = value
			case "category":
				in.Category = value
			case "tags":
				in.Tags = value
			case "status":
				in.Status = value
			}
		})
		if err != nil {
			writeServiceError(w, r, h.logger, "create post", err)
			return
		}

		post, err := h.svc.Create(r.Context(), caller, in, upload)
		if err != nil {
			writeServiceError(w, r, h.logger, "create post", err)
			return
		}
		h.logger.Info("post created", "post_id", post.ID, "author_id", caller.UserID, "status", post.Status)
		writeJSON(w, http.StatusCreated, post)
	}
}

func (h *PostsHandler) Update() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := authz.FromContext(r.Context())
		if caller == nil {
			writeServiceError(w, r, h.logger, "update post", authz.ErrUnauthorized)
			return
		}
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "update post", posts.ErrNotFound)
			return
		}

		var in posts.UpdateInput
		upload, err := decodeBody(w, r, &in, func(name, value string) {
			v := value
			switch name {
			case "title":
				in.Title = &v
			case "content":
				in.Content = &v
			case "excerpt":
				in.Excerpt = &v
			case "category":
				in.Category = &v
			case "tags":
				in.Tags = &v
			case "status":
				in.Status = &v
			}
		})
		if err != nil {
			writeServiceError(w, r, h.logger, "update post", err)
			return
		}

		post, err := h.svc.Update(r.Context(), caller, id, in, upload)
		if err != nil {
			writeServiceError(w, r, h.logger, "update post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (h *PostsHandler) Delete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "delete post", posts.ErrNotFound)
			return
		}
		caller := authz.FromContext(r.Context())
		if err := h.svc.Delete(r.Context(), caller, id); err != nil {
			writeServiceError(w, r, h.logger, "delete post", err)
			return
		}
		h.logger.Info("post deleted", "post_id", id, "actor_id", caller.UserID)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *PostsHandler) ToggleLike() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(chi.URLParam(r, "id"))
		if !ok {
			writeServiceError(w, r, h.logger, "toggle like", posts.ErrNotFound)
			return
		}
		res, err := h.svc.ToggleLike(r.Context(), authz.FromContext(r.Context()), id)
		if err != nil {
			writeServiceError(w, r, h.logger, "toggle like", err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
