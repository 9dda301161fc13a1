package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/jeremyjsx/inkwell/internal/authz"
	"github.com/jeremyjsx/inkwell/internal/session"
)

type failingStore struct{}

func (failingStore) Lookup(context.Context, string) (*authz.Identity, error) {
	return nil, errors.New("redis down")
}

func TestIdentity(t *testing.T) {
	store := session.NewMemoryStore()
	user := uuid.New()
	store.Put("tok", session.Data{UserID: user, Role: "user"})
	store.Put("no-user", session.Data{Role: "user"})
	store.Put("bad-role", session.Data{UserID: user, Role: "root"})
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))

	var seen *authz.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = authz.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		store      session.Store
		header     string
		wantStatus int
		wantUser   *uuid.UUID
	}{
		{name: "anonymous", store: store, wantStatus: http.StatusNoContent},
		{name: "valid token", store: store, header: "Bearer tok", wantStatus: http.StatusNoContent, wantUser: &user},
		{name: "lowercase scheme", store: store, header: "bearer tok", wantStatus: http.StatusNoContent, wantUser: &user},
		{name: "unknown token", store: store, header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "session without user id", store: store, header: "Bearer no-user", wantStatus: http.StatusUnauthorized},
		{name: "unknown role", store: store, header: "Bearer bad-role", wantStatus: http.StatusUnauthorized},
		{name: "store down", store: failingStore{}, header: "Bearer tok", wantStatus: http.StatusServiceUnavailable},
		{name: "other scheme ignored", store: store, header: "Basic abc", wantStatus: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/posts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Identity(tt.store, logger)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("Retry-After") != "" {
				t.Errorf("Retry-After set on %d", rec.Code)
			}
			switch {
			case tt.wantUser == nil && seen != nil:
				t.Errorf("unexpected identity %+v", seen)
			case tt.wantUser != nil && (seen == nil || seen.UserID != *tt.wantUser):
				t.Errorf("identity = %+v", seen)
			}
		})
	}
}

func TestRequestIDAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("response request id = %q", got)
	}
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line: %v", err)
	}
	if entry["request_id"] != "abc-123" || entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("log entry = %v", entry)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("generated request id not a uuid: %v", err)
	}
}
