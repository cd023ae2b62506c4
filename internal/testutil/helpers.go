package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/api"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
)

// NewTestServer creates a test server backed by an in-memory store with
// rate limiting disabled.
func NewTestServer(t *testing.T, adminKey string) (*api.Server, *service.Service) {
	t.Helper()
	svc := service.New(store.NewMemoryStore())
	server := api.NewServer(svc, adminKey, api.WithRateLimit(0))
	return server, svc
}

// HTTPRequest is a helper for making test HTTP requests.
type HTTPRequest struct {
	Method  string
	Path    string
	Body    string
	Headers map[string]string
}

// Do executes the HTTP request and returns the response recorder.
func (r *HTTPRequest) Do(t *testing.T, handler http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if r.Body != "" {
		body = bytes.NewBufferString(r.Body)
	}
	req := httptest.NewRequest(r.Method, r.Path, body)
	if r.Body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// DecodeJSON decodes the recorded response body into v.
func DecodeJSON(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

// SeedRules stores each rule text and returns the assigned ids in order.
func SeedRules(ctx context.Context, svc *service.Service, texts []string) ([]int64, error) {
	ids := make([]int64, 0, len(texts))
	for _, text := range texts {
		view, err := svc.Create(ctx, text)
		if err != nil {
			return nil, err
		}
		ids = append(ids, view.ID)
	}
	return ids, nil
}
