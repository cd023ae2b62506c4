package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("rule not found")

// APIError is a non-2xx response from the rule service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps a 404 to ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Client is an HTTP client for the rule service API
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Combined is the response of CombineRules.
type Combined struct {
	ID          int64           `json:"id"`
	Rule        string          `json:"rule"`
	CombinedAST json.RawMessage `json:"combined_ast"`
}

// Parsed is the response of ParseRule.
type Parsed struct {
	Rule      string          `json:"rule"`
	Canonical string          `json:"canonical"`
	AST       json.RawMessage `json:"ast"`
	Fields    []string        `json:"fields"`
	Depth     int             `json:"depth"`
}

// CreateRule stores a new rule.
func (c *Client) CreateRule(ctx context.Context, text string) (*service.RuleView, error) {
	var view service.RuleView
	if err := c.do(ctx, http.MethodPost, "/v1/rules", map[string]string{"rule": text}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// GetRule retrieves a single rule by id
func (c *Client) GetRule(ctx context.Context, id int64) (*service.RuleView, error) {
	var view service.RuleView
	if err := c.do(ctx, http.MethodGet, rulePath(id, ""), nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// ListRules retrieves all rules ordered by id
func (c *Client) ListRules(ctx context.Context) ([]service.RuleView, error) {
	var result struct {
		Rules []service.RuleView `json:"rules"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/rules", nil, &result); err != nil {
		return nil, err
	}
	return result.Rules, nil
}

// ModifyRule replaces the text of an existing rule
func (c *Client) ModifyRule(ctx context.Context, id int64, text string) (*service.RuleView, error) {
	var view service.RuleView
	if err := c.do(ctx, http.MethodPut, rulePath(id, ""), map[string]string{"rule": text}, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// DeleteRule deletes a rule
func (c *Client) DeleteRule(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, rulePath(id, ""), nil, nil)
}

// CombineRules joins rules with AND and stores the result as a new rule.
func (c *Client) CombineRules(ctx context.Context, ids []int64) (*Combined, error) {
	var out Combined
	if err := c.do(ctx, http.MethodPost, "/v1/rules/combine", map[string][]int64{"ids": ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate reports whether data satisfies rule id.
func (c *Client) Evaluate(ctx context.Context, id int64, data map[string]any) (bool, error) {
	var out struct {
		Result bool `json:"result"`
	}
	if err := c.do(ctx, http.MethodPost, rulePath(id, "/evaluate"), map[string]any{"data": data}, &out); err != nil {
		return false, err
	}
	return out.Result, nil
}

// Explain evaluates rule id and returns the comparison trace.
func (c *Client) Explain(ctx context.Context, id int64, data map[string]any) (*engine.Result, error) {
	var out engine.Result
	if err := c.do(ctx, http.MethodPost, rulePath(id, "/explain"), map[string]any{"data": data}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EvaluateMany evaluates several rules against the same data.
func (c *Client) EvaluateMany(ctx context.Context, ids []int64, data map[string]any) ([]service.BatchResult, error) {
	var out struct {
		Results []service.BatchResult `json:"results"`
	}
	body := map[string]any{"ids": ids, "data": data}
	if err := c.do(ctx, http.MethodPost, "/v1/rules/evaluate", body, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// ParseRule parses text on the server without storing it.
func (c *Client) ParseRule(ctx context.Context, text string) (*Parsed, error) {
	var out Parsed
	if err := c.do(ctx, http.MethodPost, "/v1/rules/parse", map[string]string{"rule": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// JSONLogic returns rule id as a JSON Logic expression.
func (c *Client) JSONLogic(ctx context.Context, id int64) (map[string]any, error) {
	var out struct {
		JSONLogic map[string]any `json:"jsonlogic"`
	}
	if err := c.do(ctx, http.MethodGet, rulePath(id, "/jsonlogic"), nil, &out); err != nil {
		return nil, err
	}
	return out.JSONLogic, nil
}

func rulePath(id int64, suffix string) string {
	return "/v1/rules/" + strconv.FormatInt(id, 10) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var payload struct {
		Message string            `json:"message"`
		Code    string            `json:"code"`
		Fields  map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(bodyBytes, &payload); err == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.Fields = payload.Fields
	} else {
		apiErr.Message = strings.TrimSpace(string(bodyBytes))
	}
	return apiErr
}
