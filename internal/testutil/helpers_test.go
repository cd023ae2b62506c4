package testutil

import (
	"context"
	"net/http"
	"testing"
)

func TestNewTestServer(t *testing.T) {
	server, svc := NewTestServer(t, "test-key")

	if server == nil {
		t.Fatal("Expected non-nil server")
	}
	if svc == nil {
		t.Fatal("Expected non-nil service")
	}

	if _, err := svc.Create(context.Background(), "age > 30"); err != nil {
		t.Fatalf("Service should be functional: %v", err)
	}
}

func TestHTTPRequest_Do(t *testing.T) {
	server, _ := NewTestServer(t, "test-key")
	handler := server.Router()

	req := &HTTPRequest{
		Method: "GET",
		Path:   "/healthz",
	}

	rr := req.Do(t, handler)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "ok" {
		t.Errorf("Expected body 'ok', got '%s'", rr.Body.String())
	}
}

func TestHTTPRequest_DoWithBody(t *testing.T) {
	server, _ := NewTestServer(t, "test-key")
	handler := server.Router()

	req := &HTTPRequest{
		Method: "POST",
		Path:   "/v1/rules",
		Body:   `{"rule":"age > 30 AND department = 'Sales'"}`,
		Headers: map[string]string{
			"Authorization": "Bearer test-key",
		},
	}

	rr := req.Do(t, handler)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var view struct {
		ID int64 `json:"id"`
	}
	DecodeJSON(t, rr, &view)
	if view.ID != 1 {
		t.Errorf("Expected id 1, got %d", view.ID)
	}
}

func TestSeedRules(t *testing.T) {
	_, svc := NewTestServer(t, "test-key")
	ctx := context.Background()

	ids, err := SeedRules(ctx, svc, []string{"age > 30", "salary > 50000", "department = 'Sales'"})
	if err != nil {
		t.Fatalf("SeedRules failed: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("Expected 3 ids, got %d", len(ids))
	}
	for i, id := range ids {
		if id != int64(i+1) {
			t.Errorf("ids[%d] = %d, want %d", i, id, i+1)
		}
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 rules, got %d", len(all))
	}
}

func TestSeedRules_StopsOnInvalidRule(t *testing.T) {
	_, svc := NewTestServer(t, "test-key")
	ctx := context.Background()

	ids, err := SeedRules(ctx, svc, []string{"age > 30", "age >", "salary > 1"})
	if err == nil {
		t.Fatal("Expected error for malformed rule")
	}
	if ids != nil {
		t.Errorf("Expected nil ids on error, got %v", ids)
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("Expected 1 rule stored before the failure, got %d", len(all))
	}
}
