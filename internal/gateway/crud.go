// ABOUTME: HTTP handlers for team members, leads, communication logs, and properties
// ABOUTME: Thin CRUD over the store with JSON request validation

package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/brokerage-crm/internal/store"
)

// TeamMemberResponse is the JSON shape of a team member.
type TeamMemberResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Role           string `json:"role,omitempty"`
	Status         string `json:"status"`
	InLeadRotation bool   `json:"is_in_lead_rotation"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// TeamMemberRequest is the JSON body for creating or updating a team member.
// Nil fields are left unchanged on update.
type TeamMemberRequest struct {
	Name           *string `json:"name"`
	Email          *string `json:"email"`
	Phone          *string `json:"phone"`
	Role           *string `json:"role"`
	Status         *string `json:"status"`
	InLeadRotation *bool   `json:"is_in_lead_rotation"`
}

// LeadResponse is the JSON shape of a lead.
type LeadResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Status    string `json:"status"`
	AgentName string `json:"agent_name,omitempty"`
	Notes     string `json:"notes,omitempty"`
	IsHot     bool   `json:"is_hot"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// LeadRequest is the JSON body for creating or updating a lead.
// Nil fields are left unchanged on update.
type LeadRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Status    *string `json:"status"`
	AgentName *string `json:"agent_name"`
	Notes     *string `json:"notes"`
	IsHot     *bool   `json:"is_hot"`
}

// PropertyRefResponse is the property resolved from a communication log.
type PropertyRefResponse struct {
	ID      string `json:"id"`
	Address string `json:"address"`
}

// CommunicationLogResponse is the JSON shape of a communication log.
type CommunicationLogResponse struct {
	ID                string               `json:"id"`
	FromAddress       string               `json:"from_address,omitempty"`
	ToAddress         string               `json:"to_address,omitempty"`
	Body              string               `json:"body,omitempty"`
	Subject           string               `json:"subject,omitempty"`
	CommunicationType string               `json:"communication_type"`
	PropertyID        string               `json:"property_id,omitempty"`
	Property          *PropertyRefResponse `json:"property"`
	CreatedAt         string               `json:"created_at"`
}

// CommunicationLogRequest is the JSON body for POST /api/communications.
type CommunicationLogRequest struct {
	FromAddress       string `json:"from_address"`
	ToAddress         string `json:"to_address"`
	Body              string `json:"body"`
	Subject           string `json:"subject"`
	CommunicationType string `json:"communication_type"`
	PropertyID        string `json:"property_id"`
}

// PropertyResponse is the JSON shape of a property.
type PropertyResponse struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

// PropertyRequest is the JSON body for POST /api/properties.
type PropertyRequest struct {
	Address string `json:"address"`
}

const defaultCommunicationsLimit = 50

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toTeamMemberResponse(m *store.TeamMember) TeamMemberResponse {
	return TeamMemberResponse{
		ID:             m.ID,
		Name:           m.Name,
		Email:          m.Email,
		Phone:          m.Phone,
		Role:           m.Role,
		Status:         m.Status,
		InLeadRotation: m.InLeadRotation,
		CreatedAt:      formatTimestamp(m.CreatedAt),
		UpdatedAt:      formatTimestamp(m.UpdatedAt),
	}
}

func toLeadResponse(l *store.Lead) LeadResponse {
	return LeadResponse{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Status:    l.Status,
		AgentName: l.AgentName,
		Notes:     l.Notes,
		IsHot:     l.IsHot,
		CreatedAt: formatTimestamp(l.CreatedAt),
		UpdatedAt: formatTimestamp(l.UpdatedAt),
	}
}

func toCommunicationLogResponse(c *store.CommunicationLog) CommunicationLogResponse {
	resp := CommunicationLogResponse{
		ID:                c.ID,
		FromAddress:       c.FromAddress,
		ToAddress:         c.ToAddress,
		Body:              c.Body,
		Subject:           c.Subject,
		CommunicationType: c.CommunicationType,
		PropertyID:        c.PropertyID,
		CreatedAt:         formatTimestamp(c.CreatedAt),
	}
	if c.Property != nil {
		resp.Property = &PropertyRefResponse{ID: c.Property.ID, Address: c.Property.Address}
	}
	return resp
}

// applyTeamMember copies the non-nil request fields onto m.
func applyTeamMember(m *store.TeamMember, req *TeamMemberRequest) {
	if req.Name != nil {
		m.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		m.Email = *req.Email
	}
	if req.Phone != nil {
		m.Phone = *req.Phone
	}
	if req.Role != nil {
		m.Role = *req.Role
	}
	if req.Status != nil {
		m.Status = *req.Status
	}
	if req.InLeadRotation != nil {
		m.InLeadRotation = *req.InLeadRotation
	}
}

// validateTeamMember returns a user-facing message, or "" when m is valid.
func validateTeamMember(m *store.TeamMember) string {
	if m.Name == "" {
		return "name is required"
	}
	if m.Status != store.MemberStatusActive && m.Status != store.MemberStatusInactive {
		return "status must be Active or Inactive"
	}
	return ""
}

// handleTeamMembers handles GET and POST /api/team-members.
func (g *Gateway) handleTeamMembers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListTeamMembers(w, r)
	case http.MethodPost:
		g.handleCreateTeamMember(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListTeamMembers handles GET /api/team-members.
// Optional filters: status, in_rotation (true|false).
func (g *Gateway) handleListTeamMembers(w http.ResponseWriter, r *http.Request) {
	var filter store.TeamMemberFilter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("in_rotation"); raw != "" {
		inRotation, err := strconv.ParseBool(raw)
		if err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "in_rotation must be true or false")
			return
		}
		filter.InRotation = &inRotation
	}

	members, err := g.store.ListTeamMembers(r.Context(), filter)
	if err != nil {
		g.logger.Error("failed to list team members", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]TeamMemberResponse, len(members))
	for i, m := range members {
		response[i] = toTeamMemberResponse(m)
	}
	g.writeJSON(w, http.StatusOK, response)
}

// handleCreateTeamMember handles POST /api/team-members.
func (g *Gateway) handleCreateTeamMember(w http.ResponseWriter, r *http.Request) {
	var req TeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	member := &store.TeamMember{
		ID:        uuid.NewString(),
		Status:    store.MemberStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyTeamMember(member, &req)
	if msg := validateTeamMember(member); msg != "" {
		g.sendJSONError(w, http.StatusBadRequest, msg)
		return
	}

	if err := g.store.CreateTeamMember(r.Context(), member); err != nil {
		g.logger.Error("failed to create team member", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.logger.Info("team member created", "id", member.ID, "rotation", member.InLeadRotation)
	g.writeJSON(w, http.StatusCreated, toTeamMemberResponse(member))
}

// handleTeamMember handles GET, PUT, and DELETE /api/team-members/{id}.
func (g *Gateway) handleTeamMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		member, err := g.store.GetTeamMember(r.Context(), id)
		if g.sendStoreError(w, err, store.ErrTeamMemberNotFound, "team member not found") {
			return
		}
		g.writeJSON(w, http.StatusOK, toTeamMemberResponse(member))

	case http.MethodPut:
		var req TeamMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		member, err := g.store.GetTeamMember(r.Context(), id)
		if g.sendStoreError(w, err, store.ErrTeamMemberNotFound, "team member not found") {
			return
		}
		applyTeamMember(member, &req)
		if msg := validateTeamMember(member); msg != "" {
			g.sendJSONError(w, http.StatusBadRequest, msg)
			return
		}
		member.UpdatedAt = time.Now().UTC()
		if g.sendStoreError(w, g.store.UpdateTeamMember(r.Context(), member), store.ErrTeamMemberNotFound, "team member not found") {
			return
		}
		g.writeJSON(w, http.StatusOK, toTeamMemberResponse(member))

	case http.MethodDelete:
		if g.sendStoreError(w, g.store.DeleteTeamMember(r.Context(), id), store.ErrTeamMemberNotFound, "team member not found") {
			return
		}
		g.logger.Info("team member deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleLeads handles GET and POST /api/leads.
func (g *Gateway) handleLeads(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		g.handleListLeads(w, r)
	case http.MethodPost:
		g.handleCreateLead(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleListLeads handles GET /api/leads.
// Optional filters: status, agent, limit.
func (g *Gateway) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter store.LeadFilter
	if status := q.Get("status"); status != "" {
		filter.Status = &status
	}
	if agent := q.Get("agent"); agent != "" {
		filter.AgentName = &agent
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			g.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	leads, err := g.store.ListLeads(r.Context(), filter)
	if err != nil {
		g.logger.Error("failed to list leads", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := make([]LeadResponse, len(leads))
	for i, l := range leads {
		response[i] = toLeadResponse(l)
	}
	g.writeJSON(w, http.StatusOK, response)
}

// applyLead copies the non-nil request fields onto l.
func applyLead(l *store.Lead, req *LeadRequest) {
	if req.Name != nil {
		l.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		l.Email = *req.Email
	}
	if req.Phone != nil {
		l.Phone = *req.Phone
	}
	if req.Status != nil {
		l.Status = *req.Status
	}
	if req.AgentName != nil {
		l.AgentName = *req.AgentName
	}
	if req.Notes != nil {
		l.Notes = *req.Notes
	}
	if req.IsHot != nil {
		l.IsHot = *req.IsHot
	}
}

// handleCreateLead handles POST /api/leads.
func (g *Gateway) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	now := time.Now().UTC()
	lead := &store.Lead{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	applyLead(lead, &req)
	if lead.Name == "" {
		g.sendJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if lead.Status == "" {
		lead.Status = store.LeadStatusNew
	}

	if err := g.store.CreateLead(r.Context(), lead); err != nil {
		g.logger.Error("failed to create lead", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	g.logger.Info("lead created", "id", lead.ID)
	g.writeJSON(w, http.StatusCreated, toLeadResponse(lead))
}

// handleLead handles GET, PUT, and DELETE /api/leads/{id}.
func (g *Gateway) handleLead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	switch r.Method {
	case http.MethodGet:
		lead, err := g.store.GetLead(r.Context(), id)
		if g.sendStoreError(w, err, store.ErrLeadNotFound, "lead not found") {
			return
		}
		g.writeJSON(w, http.StatusOK, toLeadResponse(lead))

	case http.MethodPut:
		var req LeadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		lead, err := g.store.GetLead(r.Context(), id)
		if g.sendStoreError(w, err, store.ErrLeadNotFound, "lead not found") {
			return
		}
		applyLead(lead, &req)
		if lead.Name == "" {
			g.sendJSONError(w, http.StatusBadRequest, "name is required")
			return
		}
		lead.UpdatedAt = time.Now().UTC()
		if g.sendStoreError(w, g.store.UpdateLead(r.Context(), lead), store.ErrLeadNotFound, "lead not found") {
			return
		}
		g.writeJSON(w, http.StatusOK, toLeadResponse(lead))

	case http.MethodDelete:
		if g.sendStoreError(w, g.store.DeleteLead(r.Context(), id), store.ErrLeadNotFound, "lead not found") {
			return
		}
		g.logger.Info("lead deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleCommunications handles GET and POST /api/communications.
func (g *Gateway) handleCommunications(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit := defaultCommunicationsLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				g.sendJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		logs, err := g.store.ListCommunicationLogs(r.Context(), limit)
		if err != nil {
			g.logger.Error("failed to list communication logs", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		response := make([]CommunicationLogResponse, len(logs))
		for i, c := range logs {
			response[i] = toCommunicationLogResponse(c)
		}
		g.writeJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req CommunicationLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CommunicationType == "" {
			g.sendJSONError(w, http.StatusBadRequest, "communication_type is required")
			return
		}

		entry := &store.CommunicationLog{
			ID:                uuid.NewString(),
			FromAddress:       req.FromAddress,
			ToAddress:         req.ToAddress,
			Body:              req.Body,
			Subject:           req.Subject,
			CommunicationType: req.CommunicationType,
			PropertyID:        req.PropertyID,
			CreatedAt:         time.Now().UTC(),
		}
		if err := g.store.CreateCommunicationLog(r.Context(), entry); err != nil {
			g.logger.Error("failed to record communication", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		g.logger.Info("communication recorded", "id", entry.ID, "type", entry.CommunicationType)
		g.writeJSON(w, http.StatusCreated, toCommunicationLogResponse(entry))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleProperties handles GET and POST /api/properties.
func (g *Gateway) handleProperties(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		props, err := g.store.ListProperties(r.Context())
		if err != nil {
			g.logger.Error("failed to list properties", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		response := make([]PropertyResponse, len(props))
		for i, p := range props {
			response[i] = PropertyResponse{ID: p.ID, Address: p.Address, CreatedAt: formatTimestamp(p.CreatedAt)}
		}
		g.writeJSON(w, http.StatusOK, response)

	case http.MethodPost:
		var req PropertyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.sendJSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		address := strings.TrimSpace(req.Address)
		if address == "" {
			g.sendJSONError(w, http.StatusBadRequest, "address is required")
			return
		}

		prop := &store.Property{ID: uuid.NewString(), Address: address, CreatedAt: time.Now().UTC()}
		if err := g.store.CreateProperty(r.Context(), prop); err != nil {
			g.logger.Error("failed to create property", "error", err)
			g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		g.writeJSON(w, http.StatusCreated, PropertyResponse{ID: prop.ID, Address: prop.Address, CreatedAt: formatTimestamp(prop.CreatedAt)})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// sendStoreError writes a 404 for notFound and a 500 for any other error.
// It reports whether a response was written.
func (g *Gateway) sendStoreError(w http.ResponseWriter, err, notFound error, notFoundMsg string) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, notFound) {
		g.sendJSONError(w, http.StatusNotFound, notFoundMsg)
		return true
	}
	g.logger.Error("store operation failed", "error", err)
	g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	return true
}
