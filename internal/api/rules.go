package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/rules"
	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/service"
)

type ruleRequest struct {
	Rule string `json:"rule"`
}

type idsRequest struct {
	IDs []int64 `json:"ids"`
}

type evaluateRequest struct {
	Data engine.Record `json:"data"`
}

type batchRequest struct {
	IDs  []int64       `json:"ids"`
	Data engine.Record `json:"data"`
}

type listResponse struct {
	Rules []service.RuleView `json:"rules"`
}

type combineResponse struct {
	ID          int64       `json:"id"`
	Rule        string      `json:"rule"`
	CombinedAST *rules.Tree `json:"combined_ast"`
}

type parseResponse struct {
	Rule      string      `json:"rule"`
	Canonical string      `json:"canonical"`
	AST       *rules.Tree `json:"ast"`
	Fields    []string    `json:"fields"`
	Depth     int         `json:"depth"`
}

type evaluateResponse struct {
	Result       bool   `json:"result"`
	EvaluationID string `json:"evaluationId"`
}

type explainResponse struct {
	engine.Result
	EvaluationID string `json:"evaluationId"`
}

type batchResponse struct {
	Results      []service.BatchResult `json:"results"`
	EvaluationID string                `json:"evaluationId"`
}

type jsonLogicResponse struct {
	ID        int64          `json:"id"`
	JSONLogic map[string]any `json:"jsonlogic"`
}

// ---- handlers ----

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	views, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Rules: views})
}

func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.svc.Create(r.Context(), req.Rule)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", view.ETag)
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleParseRule(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	node, err := s.svc.Parse(req.Rule)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Rule:      req.Rule,
		Canonical: rules.Format(node),
		AST:       rules.Serialize(node),
		Fields:    rules.Fields(node),
		Depth:     rules.Depth(node),
	})
}

func (s *Server) handleCombineRules(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.svc.Combine(r.Context(), req.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, combineResponse{ID: view.ID, Rule: view.Source, CombinedAST: view.AST})
}

func (s *Server) handleEvaluateMany(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	results, err := s.svc.EvaluateMany(r.Context(), req.IDs, req.Data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Results: results, EvaluationID: uuid.NewString()})
}

// handleGetRule serves a rule with an ETag derived from its stored tree.
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == view.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", view.ETag)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleModifyRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	var req ruleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.svc.Modify(r.Context(), id, req.Rule)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("ETag", view.ETag)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEvaluateRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.svc.Evaluate(r.Context(), id, req.Data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, evaluateResponse{Result: result, EvaluationID: uuid.NewString()})
}

func (s *Server) handleExplainRule(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	var req evaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.svc.Explain(r.Context(), id, req.Data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Result: res, EvaluationID: uuid.NewString()})
}

func (s *Server) handleJSONLogic(w http.ResponseWriter, r *http.Request) {
	id, ok := ruleID(w, r)
	if !ok {
		return
	}
	expr, err := s.svc.JSONLogic(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jsonLogicResponse{ID: id, JSONLogic: expr})
}
