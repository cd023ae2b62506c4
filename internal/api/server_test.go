package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/api"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/store"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/testutil"
)

const (
	adminKey = "test-key"
	rule1    = "((age > 30 AND department = 'Sales') OR (age < 25 AND department = 'Marketing')) AND (salary > 50000 OR experience > 5)"
	rule2    = "((age > 30 AND department = 'Marketing')) AND (salary > 20000 OR experience > 5)"
)

var authHeader = map[string]string{"Authorization": "Bearer " + adminKey}

func newHandler(t *testing.T, seed ...string) (http.Handler, []int64) {
	t.Helper()
	server, svc := testutil.NewTestServer(t, adminKey)
	ids, err := testutil.SeedRules(context.Background(), svc, seed)
	if err != nil {
		t.Fatalf("seed rules: %v", err)
	}
	return server.Router(), ids
}

func path(id int64, suffix string) string {
	return "/v1/rules/" + strconv.FormatInt(id, 10) + suffix
}

func TestHealthz(t *testing.T) {
	h, _ := newHandler(t)
	rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: "/healthz"}).Do(t, h)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rr.Code, rr.Body.String())
	}
}

func TestCreateRule_Auth(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantCode   api.ErrorCode
	}{
		{"missing token", nil, http.StatusUnauthorized, api.ErrCodeUnauthorized},
		{"wrong token", map[string]string{"Authorization": "Bearer nope"}, http.StatusForbidden, api.ErrCodeForbidden},
		{"valid token", authHeader, http.StatusCreated, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			rr := (&testutil.HTTPRequest{
				Method:  http.MethodPost,
				Path:    "/v1/rules",
				Body:    `{"rule":"age > 30"}`,
				Headers: tt.headers,
			}).Do(t, h)

			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantCode != "" {
				var resp api.ErrorResponse
				testutil.DecodeJSON(t, rr, &resp)
				if resp.Code != tt.wantCode {
					t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
				}
			}
		})
	}
}

func TestCreateRule_Response(t *testing.T) {
	h, _ := newHandler(t)
	rr := (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/v1/rules",
		Body:    `{"rule":"age > 30 AND department = 'Sales'"}`,
		Headers: authHeader,
	}).Do(t, h)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("ETag") == "" {
		t.Error("Expected ETag header")
	}

	var view struct {
		ID   int64  `json:"id"`
		Rule string `json:"rule"`
		AST  struct {
			Type  string `json:"type"`
			Value string `json:"value"`
			Left  struct {
				Type  string `json:"type"`
				Value string `json:"value"`
			} `json:"left"`
		} `json:"ast"`
	}
	testutil.DecodeJSON(t, rr, &view)
	if view.ID != 1 {
		t.Errorf("id = %d, want 1", view.ID)
	}
	if view.AST.Type != "operator" || view.AST.Value != "AND" {
		t.Errorf("root = %s %s, want operator AND", view.AST.Type, view.AST.Value)
	}
	if view.AST.Left.Type != "operand" || view.AST.Left.Value != "age > 30" {
		t.Errorf("left = %s %q, want operand \"age > 30\"", view.AST.Left.Type, view.AST.Left.Value)
	}
}

func TestCreateRule_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode api.ErrorCode
	}{
		{"invalid json", `{"rule":`, api.ErrCodeInvalidJSON},
		{"empty body", ``, api.ErrCodeInvalidJSON},
		{"empty rule", `{"rule":""}`, api.ErrCodeInvalidRule},
		{"blank rule", `{"rule":"  "}`, api.ErrCodeInvalidRule},
		{"syntax error", `{"rule":"age >"}`, api.ErrCodeInvalidRule},
		{"unbalanced", `{"rule":"(age > 30"}`, api.ErrCodeInvalidRule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t)
			rr := (&testutil.HTTPRequest{Method: http.MethodPost, Path: "/v1/rules", Body: tt.body, Headers: authHeader}).Do(t, h)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp api.ErrorResponse
			testutil.DecodeJSON(t, rr, &resp)
			if resp.Code != tt.wantCode {
				t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestCreateRule_TooLarge(t *testing.T) {
	h, _ := newHandler(t)
	body := `{"rule":"` + strings.Repeat("a", 2<<20) + `"}`
	rr := (&testutil.HTTPRequest{Method: http.MethodPost, Path: "/v1/rules", Body: body, Headers: authHeader}).Do(t, h)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rr.Code)
	}
}

func TestGetRule_ETag(t *testing.T) {
	h, ids := newHandler(t, rule1)

	rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: path(ids[0], "")}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("unexpected ETag %q", etag)
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodGet,
		Path:    path(ids[0], ""),
		Headers: map[string]string{"If-None-Match": etag},
	}).Do(t, h)
	if rr.Code != http.StatusNotModified {
		t.Errorf("Expected 304, got %d", rr.Code)
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodGet,
		Path:    path(ids[0], ""),
		Headers: map[string]string{"If-None-Match": `W/"stale"`},
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200 for stale ETag, got %d", rr.Code)
	}
}

func TestGetRule_Errors(t *testing.T) {
	h, _ := newHandler(t, rule1)
	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/v1/rules/99", http.StatusNotFound},
		{"/v1/rules/abc", http.StatusBadRequest},
		{"/v1/rules/0", http.StatusBadRequest},
		{"/v1/rules/-3", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: tt.path}).Do(t, h)
		if rr.Code != tt.wantStatus {
			t.Errorf("GET %s = %d, want %d", tt.path, rr.Code, tt.wantStatus)
		}
	}
}

func TestListRules(t *testing.T) {
	h, _ := newHandler(t)
	rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/rules"}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"rules":[]}` {
		t.Errorf("empty list = %s", got)
	}

	h, _ = newHandler(t, rule1, rule2)
	rr = (&testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/rules"}).Do(t, h)
	var resp struct {
		Rules []service.RuleView `json:"rules"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if len(resp.Rules) != 2 || resp.Rules[0].ID != 1 || resp.Rules[1].Source != rule2 {
		t.Errorf("unexpected list: %+v", resp.Rules)
	}
}

func TestModifyRule(t *testing.T) {
	h, ids := newHandler(t, "age > 30")

	rr := (&testutil.HTTPRequest{
		Method:  http.MethodPut,
		Path:    path(ids[0], ""),
		Body:    `{"rule":"age > 40"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = (&testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   path(ids[0], "/evaluate"),
		Body:   `{"data":{"age":35}}`,
	}).Do(t, h)
	var resp struct {
		Result bool `json:"result"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Result {
		t.Error("modified rule should reject age 35")
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodPut,
		Path:    "/v1/rules/99",
		Body:    `{"rule":"age > 40"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusNotFound {
		t.Errorf("modify missing rule = %d, want 404", rr.Code)
	}
}

func TestDeleteRule(t *testing.T) {
	h, ids := newHandler(t, "age > 30")

	for i := 0; i < 2; i++ {
		rr := (&testutil.HTTPRequest{Method: http.MethodDelete, Path: path(ids[0], ""), Headers: authHeader}).Do(t, h)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("delete #%d = %d, want 204", i+1, rr.Code)
		}
	}

	rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: path(ids[0], "")}).Do(t, h)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rr.Code)
	}
}

func TestCombineRules(t *testing.T) {
	h, ids := newHandler(t, rule1, rule2)

	rr := (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/v1/rules/combine",
		Body:    `{"ids":[1,2]}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		ID          int64 `json:"id"`
		CombinedAST struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"combined_ast"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.ID != ids[1]+1 {
		t.Errorf("combined id = %d, want %d", resp.ID, ids[1]+1)
	}
	if resp.CombinedAST.Type != "operator" || resp.CombinedAST.Value != "AND" {
		t.Errorf("combined root = %+v", resp.CombinedAST)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty ids", `{"ids":[]}`, http.StatusBadRequest},
		{"missing rule", `{"ids":[1,42]}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := (&testutil.HTTPRequest{Method: http.MethodPost, Path: "/v1/rules/combine", Body: tt.body, Headers: authHeader}).Do(t, h)
		if rr.Code != tt.wantStatus {
			t.Errorf("%s: got %d, want %d", tt.name, rr.Code, tt.wantStatus)
		}
	}
}

func TestEvaluateRule(t *testing.T) {
	h, ids := newHandler(t, rule1)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantResult bool
		wantCode   api.ErrorCode
	}{
		{"match", `{"data":{"age":35,"department":"Sales","salary":60000,"experience":3}}`, http.StatusOK, true, ""},
		{"no match", `{"data":{"age":35,"department":"Sales","salary":40000,"experience":3}}`, http.StatusOK, false, ""},
		{"missing field", `{"data":{"age":35}}`, http.StatusUnprocessableEntity, false, api.ErrCodeFieldMissing},
		{"type mismatch", `{"data":{"age":"old","department":"Sales","salary":60000,"experience":3}}`, http.StatusUnprocessableEntity, false, api.ErrCodeTypeMismatch},
		{"no data", `{}`, http.StatusBadRequest, false, api.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := (&testutil.HTTPRequest{Method: http.MethodPost, Path: path(ids[0], "/evaluate"), Body: tt.body}).Do(t, h)
			if rr.Code != tt.wantStatus {
				t.Fatalf("Expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if tt.wantCode != "" {
				var resp api.ErrorResponse
				testutil.DecodeJSON(t, rr, &resp)
				if resp.Code != tt.wantCode {
					t.Errorf("Expected code %s, got %s", tt.wantCode, resp.Code)
				}
				return
			}
			var resp struct {
				Result       bool   `json:"result"`
				EvaluationID string `json:"evaluationId"`
			}
			testutil.DecodeJSON(t, rr, &resp)
			if resp.Result != tt.wantResult {
				t.Errorf("result = %v, want %v", resp.Result, tt.wantResult)
			}
			if resp.EvaluationID == "" {
				t.Error("Expected evaluationId")
			}
		})
	}
}

func TestExplainRule(t *testing.T) {
	h, ids := newHandler(t, "age > 30 OR salary > 50000")

	rr := (&testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   path(ids[0], "/explain"),
		Body:   `{"data":{"age":35,"salary":10}}`,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Result bool `json:"result"`
		Steps  []struct {
			Comparison string `json:"comparison"`
			Result     bool   `json:"result"`
		} `json:"steps"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if !resp.Result {
		t.Error("Expected result true")
	}
	if len(resp.Steps) != 1 || resp.Steps[0].Comparison != "age > 30" {
		t.Errorf("OR should stop after first true comparison, got %+v", resp.Steps)
	}
}

func TestEvaluateMany(t *testing.T) {
	h, _ := newHandler(t, "age > 30", "age < 30")

	rr := (&testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/v1/rules/evaluate",
		Body:   `{"ids":[1,2,9],"data":{"age":40}}`,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Results []struct {
			ID     int64  `json:"id"`
			Result bool   `json:"result"`
			Error  string `json:"error"`
		} `json:"results"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if len(resp.Results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(resp.Results))
	}
	if !resp.Results[0].Result || resp.Results[1].Result {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
	if resp.Results[2].ID != 9 || resp.Results[2].Error == "" {
		t.Errorf("missing rule should report an error: %+v", resp.Results[2])
	}
}

func TestJSONLogic(t *testing.T) {
	h, ids := newHandler(t, "age > 30 AND department = 'Sales'")

	rr := (&testutil.HTTPRequest{Method: http.MethodGet, Path: path(ids[0], "/jsonlogic")}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var resp struct {
		JSONLogic map[string]json.RawMessage `json:"jsonlogic"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if _, ok := resp.JSONLogic["and"]; !ok {
		t.Errorf("Expected top-level and, got %v", resp.JSONLogic)
	}
}

func TestParseRule(t *testing.T) {
	h, _ := newHandler(t)

	rr := (&testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/v1/rules/parse",
		Body:   `{"rule":"(age > 30) AND (department = 'Sales' OR salary > 10)"}`,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Fields []string `json:"fields"`
		Depth  int      `json:"depth"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Depth != 3 {
		t.Errorf("depth = %d, want 3", resp.Depth)
	}
	if len(resp.Fields) != 3 {
		t.Errorf("fields = %v, want 3 entries", resp.Fields)
	}

	rr = (&testutil.HTTPRequest{Method: http.MethodGet, Path: "/v1/rules"}).Do(t, h)
	if got := strings.TrimSpace(rr.Body.String()); got != `{"rules":[]}` {
		t.Errorf("parse must not store the rule, list = %s", got)
	}
}

func TestCompatRoutes(t *testing.T) {
	h, _ := newHandler(t)

	rr := (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/create_rule",
		Body:    `{"rule_string":"age > 30"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("create_rule = %d: %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID  int64  `json:"id"`
		AST string `json:"ast"`
	}
	testutil.DecodeJSON(t, rr, &created)
	var tree map[string]any
	if err := json.Unmarshal([]byte(created.AST), &tree); err != nil {
		t.Fatalf("ast should be a JSON string: %v", err)
	}
	if tree["type"] != "operand" {
		t.Errorf("ast type = %v", tree["type"])
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/create_rule",
		Body:    `{"rule_string":"salary > 100"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("create_rule = %d", rr.Code)
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/combine_rules",
		Body:    `{"rule_ids":[1,2]}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusOK {
		t.Fatalf("combine_rules = %d: %s", rr.Code, rr.Body.String())
	}
	var combined struct {
		ID          int64  `json:"id"`
		CombinedAST string `json:"combined_ast"`
	}
	testutil.DecodeJSON(t, rr, &combined)
	if combined.ID != 3 || !strings.Contains(combined.CombinedAST, `"AND"`) {
		t.Errorf("unexpected combine response %+v", combined)
	}

	rr = (&testutil.HTTPRequest{
		Method: http.MethodPost,
		Path:   "/evaluate_rule",
		Body:   `{"rule_id":3,"data":{"age":31,"salary":101}}`,
	}).Do(t, h)
	var evaluated struct {
		Result bool `json:"result"`
	}
	testutil.DecodeJSON(t, rr, &evaluated)
	if !evaluated.Result {
		t.Error("combined rule should match")
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/modify_rule",
		Body:    `{"rule_id":1,"new_rule_string":"age > 50"}`,
		Headers: authHeader,
	}).Do(t, h)
	var modified struct {
		Message string `json:"message"`
	}
	testutil.DecodeJSON(t, rr, &modified)
	if rr.Code != http.StatusOK || modified.Message != "Rule updated successfully" {
		t.Errorf("modify_rule = %d %q", rr.Code, modified.Message)
	}

	rr = (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/modify_rule",
		Body:    `{"rule_id":77,"new_rule_string":"age > 50"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusNotFound {
		t.Errorf("modify_rule on missing id = %d, want 404", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	svc := service.New(store.NewMemoryStore())
	h := api.NewServer(svc, adminKey, api.WithRateLimit(1)).Router()

	req := &testutil.HTTPRequest{Method: http.MethodGet, Path: "/healthz"}
	if rr := req.Do(t, h); rr.Code != http.StatusOK {
		t.Fatalf("first request = %d", rr.Code)
	}
	rr := req.Do(t, h)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", rr.Code)
	}
	var resp api.ErrorResponse
	testutil.DecodeJSON(t, rr, &resp)
	if resp.Code != api.ErrCodeRateLimited {
		t.Errorf("Expected code %s, got %s", api.ErrCodeRateLimited, resp.Code)
	}
}

func TestWriteAccessDisabled(t *testing.T) {
	svc := service.New(store.NewMemoryStore())
	h := api.NewServer(svc, "", api.WithRateLimit(0)).Router()

	rr := (&testutil.HTTPRequest{
		Method:  http.MethodPost,
		Path:    "/v1/rules",
		Body:    `{"rule":"age > 30"}`,
		Headers: authHeader,
	}).Do(t, h)
	if rr.Code != http.StatusForbidden {
		t.Errorf("Expected 403 with empty admin key, got %d", rr.Code)
	}
}
