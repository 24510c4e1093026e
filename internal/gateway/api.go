// ABOUTME: HTTP API handlers for round-robin lead assignment
// ABOUTME: Provides POST /leads/assign and POST /leads/assign-batch plus shared JSON helpers

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/2389/brokerage-crm/internal/rotation"
)

// AssignLeadRequest is the JSON request body for POST /leads/assign.
type AssignLeadRequest struct {
	LeadID string `json:"lead_id"`
}

// AssignBatchRequest is the JSON request body for POST /leads/assign-batch.
type AssignBatchRequest struct {
	LogIDs []string `json:"log_ids"`
}

// AssignLeadResponse is the JSON response for POST /leads/assign.
type AssignLeadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AssignBatchResponse is the JSON response for POST /leads/assign-batch.
type AssignBatchResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Leads   []rotation.CreatedLead `json:"leads"`
}

// publicErrors are the only messages assignment failures expose to callers.
var publicErrors = []error{
	rotation.ErrNoEligibleAgents,
	rotation.ErrRosterUnavailable,
	rotation.ErrCursorUnavailable,
	rotation.ErrLeadUpdateFailed,
	rotation.ErrLogsUnavailable,
}

// handleAssignLead handles POST /leads/assign.
func (g *Gateway) handleAssignLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AssignLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := g.engine.AssignLead(r.Context(), req.LeadID)
	if err != nil {
		g.sendAssignmentError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, AssignLeadResponse{
		Success: true,
		Message: fmt.Sprintf("Lead assigned to %s", res.AgentName),
	})
}

// handleAssignBatch handles POST /leads/assign-batch.
func (g *Gateway) handleAssignBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req AssignBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := g.engine.AssignBatch(r.Context(), req.LogIDs)
	if err != nil {
		g.sendAssignmentError(w, err)
		return
	}

	g.writeJSON(w, http.StatusOK, AssignBatchResponse{
		Success: true,
		Message: res.Message(),
		Leads:   res.Leads,
	})
}

// sendAssignmentError maps an engine error to a status code and a terse message.
// The full error was already logged by the engine.
func (g *Gateway) sendAssignmentError(w http.ResponseWriter, err error) {
	if rotation.IsValidation(err) {
		g.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, pub := range publicErrors {
		if errors.Is(err, pub) {
			g.sendJSONError(w, http.StatusInternalServerError, pub.Error())
			return
		}
	}
	g.logger.Error("unexpected assignment error", "error", err)
	g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
}

// writeJSON writes v as a JSON response with the given status.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Warn("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
