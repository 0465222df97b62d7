package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/ledgerbook/internal/domain"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("log line is not JSON: %q", line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggingMiddleware_LogsRouteAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	logging := NewLoggingMiddleware(zerolog.New(&buf))

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(logging.Wrap)
	r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).Info().Msg("inside handler")
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/transactions/abc", nil))

	entries := decodeLogLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected handler and access log lines, got %d", len(entries))
	}
	if entries[0]["request_id"] == "" || entries[0]["request_id"] != entries[1]["request_id"] {
		t.Fatalf("expected shared request id, got %v and %v", entries[0]["request_id"], entries[1]["request_id"])
	}
	access := entries[1]
	if access["route"] != "/transactions/{id}" || access["path"] != "/transactions/abc" {
		t.Fatalf("unexpected access log: %v", access)
	}
	if access["level"] != "info" || access["status"] != float64(200) {
		t.Fatalf("unexpected level/status: %v", access)
	}
}

func TestLoggingMiddleware_ServerErrorsLogAtErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := NewLoggingMiddleware(zerolog.New(&buf)).Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/transactions", nil))

	entries := decodeLogLines(t, &buf)
	if len(entries) != 1 || entries[0]["level"] != "error" {
		t.Fatalf("expected one error-level line, got %v", entries)
	}
}

func TestAuthenticate_EnrichesRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	verifier := stubVerifier{tokens: map[string]*domain.Claim{
		"good": {UserID: "editor-1", Role: domain.RoleEditor},
	}}

	handler := NewLoggingMiddleware(zerolog.New(&buf)).Wrap(
		Authenticate(verifier, "access_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			zerolog.Ctx(r.Context()).Info().Msg("authorized work")
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "good"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := decodeLogLines(t, &buf)
	if len(entries) == 0 {
		t.Fatalf("expected log output")
	}
	if entries[0]["user_id"] != "editor-1" || entries[0]["role"] != "editor" {
		t.Fatalf("expected claim fields on handler log, got %v", entries[0])
	}
}
