package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/testutil"
)

func newTestClient(t *testing.T, apiKey string) *Client {
	t.Helper()
	server, _ := testutil.NewTestServer(t, "test-key")
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", apiKey)
}

func TestClient_RuleLifecycle(t *testing.T) {
	c := newTestClient(t, "test-key")
	ctx := context.Background()

	created, err := c.CreateRule(ctx, "age > 30 AND department = 'Sales'")
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if created.ID != 1 || created.AST == nil || created.AST.Value != "AND" {
		t.Fatalf("unexpected created rule: %+v", created)
	}

	got, err := c.GetRule(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRule: %v", err)
	}
	if got.Source != created.Source {
		t.Errorf("Source = %q, want %q", got.Source, created.Source)
	}

	ok, err := c.Evaluate(ctx, created.ID, map[string]any{"age": 40, "department": "Sales"})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !ok {
		t.Error("Expected rule to match")
	}

	if _, err := c.ModifyRule(ctx, created.ID, "age > 50"); err != nil {
		t.Fatalf("ModifyRule: %v", err)
	}
	ok, err = c.Evaluate(ctx, created.ID, map[string]any{"age": 40})
	if err != nil {
		t.Fatalf("Evaluate after modify: %v", err)
	}
	if ok {
		t.Error("Modified rule should not match age 40")
	}

	list, err := c.ListRules(ctx)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("Expected 1 rule, got %d", len(list))
	}

	if err := c.DeleteRule(ctx, created.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if _, err := c.GetRule(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetRule after delete = %v, want ErrNotFound", err)
	}
}

func TestClient_CombineAndBatch(t *testing.T) {
	c := newTestClient(t, "test-key")
	ctx := context.Background()

	for _, text := range []string{"age > 30", "salary > 50000"} {
		if _, err := c.CreateRule(ctx, text); err != nil {
			t.Fatalf("CreateRule(%q): %v", text, err)
		}
	}

	combined, err := c.CombineRules(ctx, []int64{1, 2})
	if err != nil {
		t.Fatalf("CombineRules: %v", err)
	}
	if combined.ID != 3 || combined.Rule != "(age > 30) AND (salary > 50000)" {
		t.Errorf("unexpected combined rule: %+v", combined)
	}

	results, err := c.EvaluateMany(ctx, []int64{1, 2, 3}, map[string]any{"age": 35, "salary": 10})
	if err != nil {
		t.Fatalf("EvaluateMany: %v", err)
	}
	want := []bool{true, false, false}
	for i, r := range results {
		if r.Result != want[i] {
			t.Errorf("results[%d] = %v, want %v", i, r.Result, want[i])
		}
	}

	trace, err := c.Explain(ctx, 3, map[string]any{"age": 35, "salary": 10})
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if len(trace.Steps) != 2 {
		t.Errorf("Expected 2 steps, got %d", len(trace.Steps))
	}

	expr, err := c.JSONLogic(ctx, 3)
	if err != nil {
		t.Fatalf("JSONLogic: %v", err)
	}
	if _, ok := expr["and"]; !ok {
		t.Errorf("Expected and expression, got %v", expr)
	}
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		apiKey     string
		call       func(c *Client) error
		wantStatus int
		wantCode   string
	}{
		{
			name:   "missing key",
			apiKey: "",
			call: func(c *Client) error {
				_, err := c.CreateRule(ctx, "age > 30")
				return err
			},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "UNAUTHORIZED",
		},
		{
			name:   "syntax error",
			apiKey: "test-key",
			call: func(c *Client) error {
				_, err := c.ParseRule(ctx, "age >")
				return err
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_RULE",
		},
		{
			name:   "not found",
			apiKey: "test-key",
			call: func(c *Client) error {
				_, err := c.Evaluate(ctx, 99, map[string]any{"age": 1})
				return err
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.apiKey)
			err := tt.call(c)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Expected *APIError, got %v", err)
			}
			if apiErr.StatusCode != tt.wantStatus || apiErr.Code != tt.wantCode {
				t.Errorf("got %d %s, want %d %s", apiErr.StatusCode, apiErr.Code, tt.wantStatus, tt.wantCode)
			}
		})
	}
}

func TestClient_ParseRule(t *testing.T) {
	c := newTestClient(t, "")
	parsed, err := c.ParseRule(context.Background(), "a = 1 OR b = 2 AND c = 3")
	if err != nil {
		t.Fatalf("ParseRule: %v", err)
	}
	if parsed.Canonical != "a = 1 OR b = 2 AND c = 3" {
		t.Errorf("Canonical = %q", parsed.Canonical)
	}
	if parsed.Depth != 3 {
		t.Errorf("Depth = %d, want 3", parsed.Depth)
	}
}
