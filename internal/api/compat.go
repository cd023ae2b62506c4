package api

import (
	"net/http"

	"github.com/CodeEternity01/Rule-Engine-with-AST/internal/engine"
)

// Compatibility routes keep the payload shapes of the first version of the
// service. Trees are returned as JSON-encoded strings.

type compatCreateRequest struct {
	RuleString string `json:"rule_string"`
}

type compatCreateResponse struct {
	ID  int64  `json:"id"`
	AST string `json:"ast"`
}

type compatCombineRequest struct {
	RuleIDs []int64 `json:"rule_ids"`
}

type compatCombineResponse struct {
	ID          int64  `json:"id"`
	CombinedAST string `json:"combined_ast"`
}

type compatEvaluateRequest struct {
	RuleID int64         `json:"rule_id"`
	Data   engine.Record `json:"data"`
}

type compatEvaluateResponse struct {
	Result bool `json:"result"`
}

type compatModifyRequest struct {
	RuleID        int64  `json:"rule_id"`
	NewRuleString string `json:"new_rule_string"`
}

type compatModifyResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleCompatCreate(w http.ResponseWriter, r *http.Request) {
	var req compatCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.svc.Create(r.Context(), req.RuleString)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compatCreateResponse{ID: view.ID, AST: view.Encoded})
}

func (s *Server) handleCompatCombine(w http.ResponseWriter, r *http.Request) {
	var req compatCombineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := s.svc.Combine(r.Context(), req.RuleIDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compatCombineResponse{ID: view.ID, CombinedAST: view.Encoded})
}

func (s *Server) handleCompatEvaluate(w http.ResponseWriter, r *http.Request) {
	var req compatEvaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := s.svc.Evaluate(r.Context(), req.RuleID, req.Data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compatEvaluateResponse{Result: result})
}

func (s *Server) handleCompatModify(w http.ResponseWriter, r *http.Request) {
	var req compatModifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := s.svc.Modify(r.Context(), req.RuleID, req.NewRuleString); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compatModifyResponse{Message: "Rule updated successfully"})
}
